package forms

import (
	"github.com/charmbracelet/huh"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
)

// BoardBindings holds the board form values. The slug is derived from the
// title when the input is sent.
type BoardBindings struct {
	Title     string
	MemberIDs []string
}

// BoardBindingsFrom returns bindings prefilled from b for editing.
func BoardBindingsFrom(b model.Board) *BoardBindings {
	return &BoardBindings{Title: b.Title, MemberIDs: b.MemberIDs()}
}

// NewBoardForm builds the board form with users as member candidates.
func NewBoardForm(b *BoardBindings, users []model.UserRef) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("Board name").
			Value(&b.Title).
			Validate(validateRequired("Title")),
	}
	if len(users) > 0 {
		fields = append(fields,
			huh.NewMultiSelect[string]().
				Title("Members").
				Options(userOptions(users)...).
				Value(&b.MemberIDs),
		)
	}
	return huh.NewForm(huh.NewGroup(fields...))
}

// Input converts the bindings into a BoardInput.
func (b *BoardBindings) Input() (api.BoardInput, error) {
	in := api.BoardInput{Title: b.Title, MemberIDs: b.MemberIDs}
	return in, in.Validate()
}
