package order

import (
	"strings"

	"restobar/model"
)

var (
	kitchenTags = []string{"Sin Sal", "Poco Cocido", "Bien Cocido", "Sin Cebolla", "Sin Picante", "Salsa Aparte"}
	barTags     = []string{"Sin Hielo", "Poco Hielo", "Con Limón", "Sin Azúcar", "Tibio"}
	globalTags  = []string{"Para Llevar", "⚠️ ALERGIA"}
)

// Tags returns the quick note tags offered for a product of the given area.
func Tags(area model.ProductionArea) []string {
	var out []string
	switch area {
	case model.AreaKitchen:
		out = append(out, kitchenTags...)
	case model.AreaBar:
		out = append(out, barTags...)
	}
	return append(out, globalTags...)
}

// AddTag appends tag to a note unless the note already contains it.
func AddTag(note, tag string) string {
	if tag == "" || strings.Contains(note, tag) {
		return note
	}
	if note == "" {
		return tag
	}
	return note + ", " + tag
}
