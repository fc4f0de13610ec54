package catalog

import (
	"encoding/json"
	"io"

	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/model"
)

// Parser consumes a JSON array from a byte stream and yields one record at a
// time. Only a fixed allow-list of fields per element is decoded; everything
// else is skipped at the token level, so the raw document is never held in
// memory alongside the typed records.
//
// A Parser is one-shot: after io.EOF it cannot be rewound. Consuming the
// same artifact twice means re-opening the source and constructing a new
// Parser. The parser never deletes a corrupted artifact; that cleanup
// belongs to the cache.
type Parser struct {
	dec     *json.Decoder
	kind    model.Kind
	started bool
	done    bool
}

// NewParser creates a parser producing records of the given kind.
func NewParser(r io.Reader, kind model.Kind) *Parser {
	return &Parser{
		dec:  json.NewDecoder(r),
		kind: kind,
	}
}

// Next returns the next record, or io.EOF when the array is exhausted.
// Malformed input yields an error wrapping ErrParse.
func (p *Parser) Next() (*model.Record, error) {
	if p.done {
		return nil, io.EOF
	}

	if !p.started {
		if err := p.expectDelim('['); err != nil {
			return nil, err
		}
		p.started = true
	}

	if !p.dec.More() {
		if err := p.expectDelim(']'); err != nil {
			return nil, err
		}
		p.done = true
		return nil, io.EOF
	}

	if p.kind == model.KindCask {
		return p.nextCask()
	}
	return p.nextFormula()
}

func (p *Parser) expectDelim(want json.Delim) error {
	tok, err := p.dec.Token()
	if err != nil {
		return errors.Wrapf(errors.ErrParse, "reading catalog: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.Wrapf(errors.ErrParse, "expected %q, got %v", want, tok)
	}
	return nil
}

// nextFormula decodes one formula element, keeping only the allow-listed
// fields: name, full_name, desc, homepage, versions.stable, dependencies,
// installed versions, outdated, pinned.
func (p *Parser) nextFormula() (*model.Record, error) {
	rec := &model.Record{Kind: model.KindFormula}

	err := p.eachField(func(key string) error {
		switch key {
		case "name":
			return p.dec.Decode(&rec.Name)
		case "full_name":
			var fullName string
			if err := p.dec.Decode(&fullName); err != nil {
				return err
			}
			if fullName != "" {
				rec.Names = append(rec.Names, fullName)
			}
			return nil
		case "desc":
			return decodeNullable(p.dec, &rec.Desc)
		case "homepage":
			return decodeNullable(p.dec, &rec.Homepage)
		case "versions":
			var v struct {
				Stable string `json:"stable"`
			}
			if err := p.dec.Decode(&v); err != nil {
				return err
			}
			rec.Version = v.Stable
			return nil
		case "dependencies":
			return p.dec.Decode(&rec.Dependencies)
		case "installed":
			var installed []struct {
				Version string `json:"version"`
			}
			if err := p.dec.Decode(&installed); err != nil {
				return err
			}
			for _, iv := range installed {
				rec.InstalledVersions = append(rec.InstalledVersions, iv.Version)
			}
			return nil
		case "outdated":
			return p.dec.Decode(&rec.Outdated)
		case "pinned":
			return p.dec.Decode(&rec.Pinned)
		default:
			return skipValue(p.dec)
		}
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// nextCask decodes one cask element, keeping only the allow-listed fields:
// token, name list, desc, homepage, version, installed version, outdated,
// auto_updates.
func (p *Parser) nextCask() (*model.Record, error) {
	rec := &model.Record{Kind: model.KindCask}

	err := p.eachField(func(key string) error {
		switch key {
		case "token":
			return p.dec.Decode(&rec.Name)
		case "name":
			return p.dec.Decode(&rec.Names)
		case "desc":
			return decodeNullable(p.dec, &rec.Desc)
		case "homepage":
			return decodeNullable(p.dec, &rec.Homepage)
		case "version":
			return p.dec.Decode(&rec.Version)
		case "installed":
			var installed *string
			if err := p.dec.Decode(&installed); err != nil {
				return err
			}
			if installed != nil && *installed != "" {
				rec.InstalledVersions = []string{*installed}
			}
			return nil
		case "outdated":
			return p.dec.Decode(&rec.Outdated)
		case "auto_updates":
			return p.dec.Decode(&rec.AutoUpdates)
		default:
			return skipValue(p.dec)
		}
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// eachField walks one object, calling fn with each key. fn must consume
// exactly the key's value.
func (p *Parser) eachField(fn func(key string) error) error {
	if err := p.expectDelim('{'); err != nil {
		return err
	}
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return errors.Wrapf(errors.ErrParse, "reading field name: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Wrapf(errors.ErrParse, "expected field name, got %v", tok)
		}
		if err := fn(key); err != nil {
			return errors.Wrapf(errors.ErrParse, "field %q: %v", key, err)
		}
	}
	return p.expectDelim('}')
}

// decodeNullable decodes a string field that the upstream API serializes as
// null when absent.
func decodeNullable(dec *json.Decoder, dst *string) error {
	var s *string
	if err := dec.Decode(&s); err != nil {
		return err
	}
	if s != nil {
		*dst = *s
	}
	return nil
}

// skipValue consumes one JSON value without materializing it.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// ParseAll drains a parser into a catalog. Used by the cache after a
// download and by tests.
func ParseAll(r io.Reader, kind model.Kind, onRecord func(*model.Record)) (model.Catalog, error) {
	parser := NewParser(r, kind)
	catalog := make(model.Catalog, 0, 1024)
	for {
		rec, err := parser.Next()
		if err == io.EOF {
			return catalog, nil
		}
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, rec)
		if onRecord != nil {
			onRecord(rec)
		}
	}
}
