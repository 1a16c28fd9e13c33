// Package idl models an Anchor IDL document in the 0.1.0 format.
//
// The model is built once per program definition by Parse and is read-only
// afterwards, so an *IDL may be shared freely between goroutines.
package idl

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSchema is the root of every load-time schema error.
	ErrInvalidSchema = errors.New("invalid idl schema")
)

// IDL is the top level Anchor IDL document.
type IDL struct {
	Address      string        `json:"address"`
	Metadata     Metadata      `json:"metadata"`
	Docs         []string      `json:"docs,omitempty"`
	Instructions []Instruction `json:"instructions"`
	Accounts     []Account     `json:"accounts,omitempty"`
	Events       []Event       `json:"events,omitempty"`
	Errors       []ErrorCode   `json:"errors,omitempty"`
	Types        []TypeDef     `json:"types,omitempty"`
	Constants    []Constant    `json:"constants,omitempty"`

	typesByName map[string]*TypeDef
}

type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Spec        string `json:"spec"`
	Description string `json:"description,omitempty"`
}

// Account declares an on-chain account type. Its fields live in the TypeDef
// of the same name.
type Account struct {
	Name          string        `json:"name"`
	Discriminator Discriminator `json:"discriminator"`
}

// Event declares an emitted event. Its fields live in the TypeDef of the same
// name.
type Event struct {
	Name          string        `json:"name"`
	Discriminator Discriminator `json:"discriminator"`
}

// ErrorCode is a custom program error.
type ErrorCode struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg,omitempty"`
}

// Constant is a program constant. Value is a literal in the IDL's own
// notation, e.g. "100", "[1, 2]" or a base58 address.
type Constant struct {
	Name  string   `json:"name"`
	Docs  []string `json:"docs,omitempty"`
	Type  TypeRef  `json:"type"`
	Value string   `json:"value"`
}

// Field is a named, typed field or argument.
type Field struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
	Type TypeRef  `json:"type"`
}

// Parse decodes and validates an IDL document. Any unresolved type reference,
// duplicate discriminator or missing account/event type definition fails the
// load.
func Parse(data []byte) (*IDL, error) {
	var doc IDL
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "malformed json: %s", err.Error())
	}

	doc.fillDefaultDiscriminators()

	if err := doc.validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// MustParse is like Parse but panics on error. It is intended for IDLs
// embedded at compile time.
func MustParse(data []byte) *IDL {
	doc, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return doc
}

// TypeDef looks up a type definition by name.
func (i *IDL) TypeDef(name string) (*TypeDef, bool) {
	if i.typesByName == nil {
		return i.scanTypeDef(name)
	}
	def, ok := i.typesByName[name]
	return def, ok
}

func (i *IDL) scanTypeDef(name string) (*TypeDef, bool) {
	for idx := range i.Types {
		if i.Types[idx].Name == name {
			return &i.Types[idx], true
		}
	}
	return nil, false
}

// Instruction looks up an instruction by name.
func (i *IDL) Instruction(name string) (*Instruction, bool) {
	for idx := range i.Instructions {
		if i.Instructions[idx].Name == name {
			return &i.Instructions[idx], true
		}
	}
	return nil, false
}

// Account looks up an account declaration by name.
func (i *IDL) Account(name string) (*Account, bool) {
	for idx := range i.Accounts {
		if i.Accounts[idx].Name == name {
			return &i.Accounts[idx], true
		}
	}
	return nil, false
}

// Event looks up an event declaration by name.
func (i *IDL) Event(name string) (*Event, bool) {
	for idx := range i.Events {
		if i.Events[idx].Name == name {
			return &i.Events[idx], true
		}
	}
	return nil, false
}

// ErrorByCode looks up a custom program error by its numeric code.
func (i *IDL) ErrorByCode(code uint32) (*ErrorCode, bool) {
	for idx := range i.Errors {
		if i.Errors[idx].Code == code {
			return &i.Errors[idx], true
		}
	}
	return nil, false
}
