package batch

import "errors"

// Extractor pulls the recipient address and the message body out of one
// opaque record. The batch core ships no implementation; callers wire one
// that matches the shape of their recipient document.
type Extractor[R any] interface {
	Address(record R) (string, error)
	Body(record R) (string, error)
}

// ExtractorFuncs adapts two plain functions to Extractor.
type ExtractorFuncs[R any] struct {
	AddressFunc func(R) (string, error)
	BodyFunc    func(R) (string, error)
}

// Address implements Extractor.
func (f ExtractorFuncs[R]) Address(record R) (string, error) {
	if f.AddressFunc == nil {
		return "", errors.New("batch: address extractor not configured")
	}
	return f.AddressFunc(record)
}

// Body implements Extractor.
func (f ExtractorFuncs[R]) Body(record R) (string, error) {
	if f.BodyFunc == nil {
		return "", errors.New("batch: body extractor not configured")
	}
	return f.BodyFunc(record)
}
