package session

import "github.com/theladymaker/atelier/internal/model"

// View is the JSON snapshot of a session.
type View struct {
	ID            string               `json:"id"`
	Authenticated bool                 `json:"authenticated"`
	GenerationID  int                  `json:"generation_id"`
	Product       *model.ProductRecord `json:"product,omitempty"`
	NeedsInput    bool                 `json:"needs_manual_input"`
	ImageURLs     []string             `json:"image_urls,omitempty"`
	Captions      []CaptionView        `json:"captions"`
}

// CaptionView is one caption with its edit state.
type CaptionView struct {
	Index   int    `json:"index"`
	Key     string `json:"key"`
	Persona string `json:"persona"`
	Post    string `json:"post"`
	Edited  bool   `json:"edited"`
	Error   bool   `json:"error"`
}

func (s *Session) view() *View {
	v := &View{
		ID:            s.ID,
		Authenticated: s.allowed(),
		Captions:      []CaptionView{},
	}
	if s.current == nil {
		return v
	}

	p := s.current.Product
	v.GenerationID = s.current.GenerationID
	v.Product = &p
	v.NeedsInput = p.NeedsManualInput()
	v.ImageURLs = s.current.ImageURLs
	for i, c := range s.current.Captions {
		key := model.EditKey(i, s.current.GenerationID)
		text, edited := s.edits[key]
		if !edited {
			text = c.Post
		}
		v.Captions = append(v.Captions, CaptionView{
			Index:   i,
			Key:     key,
			Persona: c.Persona,
			Post:    text,
			Edited:  edited,
			Error:   c.IsError(),
		})
	}
	return v
}
