package httpx

import (
	"reflect"
	"strings"
)

// jsonTagName reports JSON field names in validation errors.
func jsonTagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
