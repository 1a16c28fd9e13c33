package idl

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Instruction is a callable program instruction.
type Instruction struct {
	Name          string        `json:"name"`
	Docs          []string      `json:"docs,omitempty"`
	Discriminator Discriminator `json:"discriminator"`
	Accounts      []AccountItem `json:"accounts"`
	Args          []Field       `json:"args"`
	Returns       *TypeRef      `json:"returns,omitempty"`
}

// AccountItem is a node of an instruction's account tree: either a single
// account or a named group of nested items.
type AccountItem struct {
	Single    *InstructionAccount
	Composite *InstructionAccounts
}

// Name returns the name of the leaf or group.
func (a AccountItem) Name() string {
	if a.Composite != nil {
		return a.Composite.Name
	}
	if a.Single != nil {
		return a.Single.Name
	}
	return ""
}

// UnmarshalJSON implements json.Unmarshaler. Groups are recognized by their
// nested accounts list.
func (a *AccountItem) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return errors.Wrap(err, "account item must be an object")
	}

	if _, ok := probe["accounts"]; ok {
		var group InstructionAccounts
		if err := json.Unmarshal(data, &group); err != nil {
			return errors.Wrap(err, "invalid account group")
		}
		*a = AccountItem{Composite: &group}
		return nil
	}

	var single InstructionAccount
	if err := json.Unmarshal(data, &single); err != nil {
		return errors.Wrap(err, "invalid account")
	}
	*a = AccountItem{Single: &single}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a AccountItem) MarshalJSON() ([]byte, error) {
	if a.Composite != nil {
		return json.Marshal(a.Composite)
	}
	return json.Marshal(a.Single)
}

// InstructionAccount is a leaf of the account tree.
type InstructionAccount struct {
	Name      string   `json:"name"`
	Docs      []string `json:"docs,omitempty"`
	Writable  bool     `json:"writable,omitempty"`
	Signer    bool     `json:"signer,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
	Address   string   `json:"address,omitempty"`
	Pda       *Pda     `json:"pda,omitempty"`
	Relations []string `json:"relations,omitempty"`
}

// InstructionAccounts is a named group of account items.
type InstructionAccounts struct {
	Name     string        `json:"name"`
	Accounts []AccountItem `json:"accounts"`
}

// Pda describes how a program derived address is computed.
type Pda struct {
	Seeds   []Seed `json:"seeds"`
	Program *Seed  `json:"program,omitempty"`
}

type SeedKind string

const (
	SeedKindConst   SeedKind = "const"
	SeedKindArg     SeedKind = "arg"
	SeedKindAccount SeedKind = "account"
)

// Seed is a single PDA seed. Const seeds carry their bytes; arg and account
// seeds carry the path of the argument or account they reference.
type Seed struct {
	Kind    SeedKind      `json:"kind"`
	Value   Discriminator `json:"value,omitempty"`
	Path    string        `json:"path,omitempty"`
	Account string        `json:"account,omitempty"`
}

// FlatAccount is a leaf of the account tree after flattening.
type FlatAccount struct {
	// Name is the leaf name prefixed with its group ancestry, joined by "_".
	Name string
	InstructionAccount
}

// Flatten walks the account tree in pre-order and returns one entry per leaf.
// The order defines the instruction's wire account order.
func (i *Instruction) Flatten() []FlatAccount {
	return flattenAccounts(i.Accounts, "")
}

func flattenAccounts(items []AccountItem, prefix string) []FlatAccount {
	var flat []FlatAccount
	for _, item := range items {
		name := item.Name()
		if prefix != "" {
			name = prefix + "_" + name
		}

		switch {
		case item.Composite != nil:
			flat = append(flat, flattenAccounts(item.Composite.Accounts, name)...)
		case item.Single != nil:
			flat = append(flat, FlatAccount{Name: name, InstructionAccount: *item.Single})
		}
	}
	return flat
}
