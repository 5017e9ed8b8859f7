package models

import (
	"lastseat/server/internal/utils"
)

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id utils.UID)
}

type Base struct {
	ID utils.UID `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewUID()
}

func (m *Base) SetID(id utils.UID) {
	m.ID = id
}

func NewBase() Base {
	return Base{
		ID: utils.NewUID(),
	}
}
