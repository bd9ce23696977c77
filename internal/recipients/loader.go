// Package recipients loads the recipient list and provides a path based
// extractor for address and body fields of each record.
package recipients

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/example/recipient-mailer/internal/common"
)

// Record is the raw JSON of one element of the recipient array. Its shape is
// defined by whoever writes the file; the loader does not inspect it.
type Record []byte

// String returns the raw JSON text of the record.
func (r Record) String() string {
	return string(r)
}

// Load reads the recipient document at path and parses it.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Wrap(common.ErrDataFormat, fmt.Errorf("read recipients file: %w", err))
	}
	return Parse(data)
}

// Parse validates that data is a JSON document whose top level value is an
// array and returns its elements in document order.
func Parse(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, common.Wrap(common.ErrDataFormat, errors.New("recipients document is not valid JSON"))
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, common.Wrap(common.ErrDataFormat, errors.New("recipients document must be a JSON array"))
	}

	elems := doc.Array()
	records := make([]Record, 0, len(elems))
	for _, elem := range elems {
		records = append(records, Record(elem.Raw))
	}
	return records, nil
}
