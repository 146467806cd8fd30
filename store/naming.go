package store

import "strings"

// Pluralize derives a collection name from a type name.
//
// A name already ending in "s" is kept as is, otherwise "s" is appended.
// A name ending in "y" always becomes "...ies", regardless of the first rule.
func Pluralize(name string) string {
	plural := name
	if !strings.HasSuffix(name, "s") {
		plural = name + "s"
	}
	if strings.HasSuffix(name, "y") {
		plural = strings.TrimSuffix(name, "y") + "ies"
	}
	return plural
}

// CollectionNameOf returns the collection that stores entities of type T.
func CollectionNameOf[T any, PT EntityPtr[T]]() string {
	return Pluralize(PT(new(T)).EntityType())
}
