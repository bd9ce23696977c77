package recipients

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// FieldExtractor reads the destination address and the body from configurable
// gjson paths of a record. When BodyTemplate is set, every {{path}} placeholder
// is replaced with the value found at that path and BodyPath is ignored.
type FieldExtractor struct {
	AddressPath  string
	BodyPath     string
	BodyTemplate string
}

// NewFieldExtractor validates the configured paths.
func NewFieldExtractor(addressPath, bodyPath, bodyTemplate string) (*FieldExtractor, error) {
	addressPath = strings.TrimSpace(addressPath)
	bodyPath = strings.TrimSpace(bodyPath)
	if addressPath == "" {
		return nil, errors.New("recipients: address path is required")
	}
	if bodyPath == "" && bodyTemplate == "" {
		return nil, errors.New("recipients: body path or body template is required")
	}
	return &FieldExtractor{
		AddressPath:  addressPath,
		BodyPath:     bodyPath,
		BodyTemplate: bodyTemplate,
	}, nil
}

// Address returns the string found at AddressPath.
func (e *FieldExtractor) Address(rec Record) (string, error) {
	res := gjson.GetBytes(rec, e.AddressPath)
	if !res.Exists() {
		return "", fmt.Errorf("field %q not found", e.AddressPath)
	}
	if res.Type != gjson.String {
		return "", fmt.Errorf("field %q is not a string", e.AddressPath)
	}
	return res.Str, nil
}

// Body returns the rendered template or the value found at BodyPath.
func (e *FieldExtractor) Body(rec Record) (string, error) {
	if e.BodyTemplate != "" {
		return e.render(rec)
	}
	return lookup(rec, e.BodyPath)
}

func (e *FieldExtractor) render(rec Record) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(e.BodyTemplate, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		val, err := lookup(rec, path)
		if err != nil {
			missing = append(missing, path)
			return match
		}
		return val
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template fields not found: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func lookup(rec Record, path string) (string, error) {
	res := gjson.GetBytes(rec, path)
	if !res.Exists() || res.Type == gjson.Null {
		return "", fmt.Errorf("field %q not found", path)
	}
	if res.IsObject() || res.IsArray() {
		return res.Raw, nil
	}
	return res.String(), nil
}
