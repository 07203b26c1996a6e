package notion

import "github.com/jomei/notionapi"

// Title builds a title property holding plain text.
func Title(content string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: richText(content),
	}
}

// RichText builds a rich_text property holding plain text.
func RichText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(content),
	}
}

// Status builds a status property set to the named option.
func Status(name string) notionapi.StatusProperty {
	return notionapi.StatusProperty{
		Type:   notionapi.PropertyTypeStatus,
		Status: notionapi.Status{Name: name},
	}
}

// DatabaseParent returns the parent reference of a page created in dbID.
func DatabaseParent(dbID string) notionapi.Parent {
	return notionapi.Parent{
		Type:       notionapi.ParentTypeDatabaseID,
		DatabaseID: notionapi.DatabaseID(dbID),
	}
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: content}},
	}
}
