package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// FormFile is a file part of a multipart body.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// FormData is a prebuilt multipart/form-data body. The client sends its bytes
// unchanged and never sets a JSON content type for it.
type FormData struct {
	buf         bytes.Buffer
	contentType string
}

// NewFormData encodes fields (in key order) and files into a multipart body.
func NewFormData(fields map[string]string, files ...FormFile) (*FormData, error) {
	fd := &FormData{}
	w := multipart.NewWriter(&fd.buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("creating form file %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copying form file %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}
	fd.contentType = w.FormDataContentType()
	return fd, nil
}

// ContentType returns the multipart content type including its boundary.
func (f *FormData) ContentType() string {
	return f.contentType
}

// Bytes returns the encoded body.
func (f *FormData) Bytes() []byte {
	return f.buf.Bytes()
}

type encodedBody struct {
	reader io.Reader
	form   *FormData
}

// encodeBody passes FormData through and serializes anything else as JSON.
// A nil body or an empty string sends no body at all.
func encodeBody(body any) (encodedBody, error) {
	switch b := body.(type) {
	case nil:
		return encodedBody{}, nil
	case string:
		if b == "" {
			return encodedBody{}, nil
		}
	case json.RawMessage:
		if len(b) == 0 {
			return encodedBody{}, nil
		}
	case *FormData:
		if b == nil {
			return encodedBody{}, nil
		}
		return encodedBody{reader: bytes.NewReader(b.Bytes()), form: b}, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return encodedBody{}, fmt.Errorf("encoding request body: %w", err)
	}
	return encodedBody{reader: bytes.NewReader(data)}, nil
}
