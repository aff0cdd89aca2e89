// Package ctyxml reads the ClubLog cty.xml country file into dxcc records.
//
// The document is streamed element by element so the full file, which is
// several megabytes, is never held as a tree. Gzip compressed input is
// detected by its magic bytes.
package ctyxml

import (
	"bufio"
	"encoding/xml"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
)

// ErrEmptyDocument is returned when the input holds no root element.
var ErrEmptyDocument = errors.New("empty cty.xml document")

// sections maps record element names to their kind. The enclosing section
// elements (entities, prefixes, ...) are passed through.
var sections = map[string]dxcc.Kind{
	"entity":         dxcc.KindEntity,
	"prefix":         dxcc.KindPrefix,
	"exception":      dxcc.KindException,
	"invalid":        dxcc.KindInvalid,
	"zone_exception": dxcc.KindZoneException,
}

var gzipMagic = []byte{0x1f, 0x8b}

// Open decodes the file at path.
func Open(path string) ([]dxcc.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	recs, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return recs, nil
}

// LoadFile decodes the file at path and builds a Dataset from it.
func LoadFile(path string) (*dxcc.Dataset, error) {
	recs, err := Open(path)
	if err != nil {
		return nil, err
	}
	ds, err := dxcc.Load(recs)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return ds, nil
}

// Decode reads a cty.xml document from r. The first record is the header
// carrying the root element's attributes.
func Decode(r io.Reader) ([]dxcc.Record, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(len(gzipMagic)); err == nil && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer zr.Close()
		src = zr
	}

	d := xml.NewDecoder(src)
	var recs []dxcc.Record
	depth := 0
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read token")
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				recs = append(recs, dxcc.Record{Kind: dxcc.KindHeader, Attrs: attrs(el), Fields: map[string]string{}})
				continue
			}
			kind, ok := sections[el.Name.Local]
			if !ok {
				continue
			}
			rec, err := decodeRecord(d, el, kind)
			if err != nil {
				return nil, errors.Wrapf(err, "%s record %d", kind, len(recs))
			}
			recs = append(recs, rec)
			depth--
		case xml.EndElement:
			depth--
		}
	}

	if len(recs) == 0 {
		return nil, ErrEmptyDocument
	}
	return recs, nil
}

// decodeRecord reads the child elements of start up to its end element.
func decodeRecord(d *xml.Decoder, start xml.StartElement, kind dxcc.Kind) (dxcc.Record, error) {
	rec := dxcc.Record{Kind: kind, Attrs: attrs(start), Fields: make(map[string]string)}
	for {
		tok, err := d.Token()
		if err != nil {
			return rec, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var text string
			if err := d.DecodeElement(&text, &el); err != nil {
				return rec, errors.Wrapf(err, "field %s", el.Name.Local)
			}
			rec.Fields[el.Name.Local] = text
		case xml.EndElement:
			return rec, nil
		}
	}
}

func attrs(el xml.StartElement) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		m[a.Name.Local] = a.Value
	}
	return m
}
