package rsop

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Document is the subset of a resultant-policy export the snapshot needs:
// account policy (password and lockout) and security options.
type Document struct {
	Accounts        []AccountSetting
	SecurityOptions []SecurityOption
}

// AccountSetting is one account-policy entry. The value arrives as either
// a number or a boolean; both are kept raw and interpreted on lookup so a
// malformed value degrades to "not present" instead of failing the run.
type AccountSetting struct {
	Name    string `xml:"Name"`
	Number  string `xml:"SettingNumber"`
	Boolean string `xml:"SettingBoolean"`
}

// SecurityOption is one security-option entry: registry-backed values
// carry a KeyName, system-access settings a SystemAccessPolicyName.
type SecurityOption struct {
	KeyName    string `xml:"KeyName"`
	SystemName string `xml:"SystemAccessPolicyName"`
	Number     string `xml:"SettingNumber"`
	Text       string `xml:"SettingString"`
}

type rsopExtension struct {
	Accounts        []AccountSetting `xml:"Account"`
	SecurityOptions []SecurityOption `xml:"SecurityOptions"`
}

type rsopDocument struct {
	Extensions []rsopExtension `xml:"ComputerResults>ExtensionData>Extension"`
}

// Parse interprets a resultant-policy XML export. Elements are matched by
// local name, so the namespace prefixes the capture tool emits do not
// matter, and extensions other than the security one contribute nothing.
func Parse(doc []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(decodeUTF16(doc)))
	// the export may declare utf-16 even after decoding; the bytes are
	// already utf-8 at this point
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var raw rsopDocument
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding resultant policy document: %w", err)
	}

	d := &Document{}
	for _, ext := range raw.Extensions {
		d.Accounts = append(d.Accounts, ext.Accounts...)
		d.SecurityOptions = append(d.SecurityOptions, ext.SecurityOptions...)
	}
	return d, nil
}

// AccountNumber looks up a numeric account-policy setting by name.
func (d *Document) AccountNumber(name string) (int, bool) {
	for _, a := range d.Accounts {
		if !strings.EqualFold(a.Name, name) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(a.Number)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// AccountBool looks up a boolean account-policy setting by name.
func (d *Document) AccountBool(name string) (bool, bool) {
	for _, a := range d.Accounts {
		if !strings.EqualFold(a.Name, name) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(a.Boolean)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// RegistryNumber looks up a registry-backed security option by the last
// path component of its key name.
func (d *Document) RegistryNumber(valueName string) (int, bool) {
	for _, o := range d.SecurityOptions {
		if o.KeyName == "" {
			continue
		}
		key := o.KeyName
		if i := strings.LastIndexByte(key, '\\'); i >= 0 {
			key = key[i+1:]
		}
		if !strings.EqualFold(key, valueName) {
			continue
		}
		if n, ok := optionNumber(o); ok {
			return n, true
		}
	}
	return 0, false
}

// SystemAccessNumber looks up a system-access security option by name.
func (d *Document) SystemAccessNumber(name string) (int, bool) {
	for _, o := range d.SecurityOptions {
		if !strings.EqualFold(o.SystemName, name) {
			continue
		}
		if n, ok := optionNumber(o); ok {
			return n, true
		}
	}
	return 0, false
}

func optionNumber(o SecurityOption) (int, bool) {
	raw := strings.TrimSpace(o.Number)
	if raw == "" {
		// string-typed registry values hold the number as quoted text
		raw = strings.Trim(strings.TrimSpace(o.Text), `"`)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decodeUTF16 converts a UTF-16 export to UTF-8; gpresult writes UTF-16
// with a BOM. Documents without a BOM pass through unchanged.
func decodeUTF16(b []byte) []byte {
	if len(b) < 2 {
		return b
	}
	var order binary.ByteOrder
	switch {
	case b[0] == 0xFF && b[1] == 0xFE:
		order = binary.LittleEndian
	case b[0] == 0xFE && b[1] == 0xFF:
		order = binary.BigEndian
	default:
		return b
	}
	u := make([]uint16, 0, (len(b)-2)/2)
	for i := 2; i+1 < len(b); i += 2 {
		u = append(u, order.Uint16(b[i:]))
	}
	return []byte(string(utf16.Decode(u)))
}
