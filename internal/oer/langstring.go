package oer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// LangText is a single localized value.
type LangText struct {
	Lang string
	Text string
}

// LangString maps two-letter language codes to text. Entries keep the order
// in which they were added, which is also the order they serialize in.
type LangString []LangText

// Lang builds a single-entry LangString.
func Lang(lang, text string) LangString {
	return LangString{{Lang: lang, Text: text}}
}

// LangStringFromMap builds a LangString from an unordered map. Keys are sorted
// so the result does not depend on map iteration order.
func LangStringFromMap(m map[string]string) LangString {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ls := make(LangString, 0, len(keys))
	for _, k := range keys {
		ls = append(ls, LangText{Lang: k, Text: m[k]})
	}
	return ls
}

// Get returns the text stored for lang.
func (ls LangString) Get(lang string) (string, bool) {
	for _, lt := range ls {
		if lt.Lang == lang {
			return lt.Text, true
		}
	}
	return "", false
}

// With returns a copy of ls where lang is set to text. An existing entry keeps
// its position.
func (ls LangString) With(lang, text string) LangString {
	out := make(LangString, len(ls), len(ls)+1)
	copy(out, ls)
	for i := range out {
		if out[i].Lang == lang {
			out[i].Text = text
			return out
		}
	}
	return append(out, LangText{Lang: lang, Text: text})
}

// Without returns a copy of ls with lang removed.
func (ls LangString) Without(lang string) LangString {
	out := make(LangString, 0, len(ls))
	for _, lt := range ls {
		if lt.Lang != lang {
			out = append(out, lt)
		}
	}
	return out
}

// Texts returns the values in stored order.
func (ls LangString) Texts() []string {
	texts := make([]string, len(ls))
	for i, lt := range ls {
		texts[i] = lt.Text
	}
	return texts
}

// Best picks the display value: English, then German, then the smallest
// language code present. It returns "" only for an empty LangString.
func (ls LangString) Best() string {
	if len(ls) == 0 {
		return ""
	}
	for _, lang := range []string{"en", "de"} {
		if text, ok := ls.Get(lang); ok {
			return text
		}
	}
	best := ls[0]
	for _, lt := range ls[1:] {
		if lt.Lang < best.Lang {
			best = lt
		}
	}
	return best.Text
}

// Validate checks that every key is a lower-case two-letter code and that no
// code appears twice.
func (ls LangString) Validate() error {
	seen := make(map[string]bool, len(ls))
	for _, lt := range ls {
		if !isAlpha2(lt.Lang) {
			return fmt.Errorf("%w: %q", ErrInvalidLanguage, lt.Lang)
		}
		if seen[lt.Lang] {
			return fmt.Errorf("duplicate language %q in localized string", lt.Lang)
		}
		seen[lt.Lang] = true
	}
	return nil
}

func (ls LangString) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lt := range ls {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(lt.Lang)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(lt.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ls *LangString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*ls = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("localized string must be a JSON object, got %v", tok)
	}

	var out LangString
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("failed to decode localized value for %q: %w", key, err)
		}
		out = append(out, LangText{Lang: key, Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*ls = out
	return nil
}

func isAlpha2(code string) bool {
	return len(code) == 2 && isLower(code)
}

func isAlpha3(code string) bool {
	return len(code) == 3 && isLower(code)
}

func isLower(code string) bool {
	for i := 0; i < len(code); i++ {
		if code[i] < 'a' || code[i] > 'z' {
			return false
		}
	}
	return true
}
