package output

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONFormatter formats probe results as JSON.
type JSONFormatter struct{}

// Format writes data as indented JSON. HTML escaping is off so label
// values such as le="+Inf" or <none> print as the monitor sent them.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(emptyList(data))
}

// emptyList turns a nil slice into an empty one, so a filter matching
// nothing yields [] rather than null.
func emptyList(data any) any {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return data
}
