package idl

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// DiscriminatorSize is the width of the hash-derived discriminators Anchor
// assigns by default.
const DiscriminatorSize = 8

// Discriminator is the byte prefix identifying an account, event or
// instruction on the wire. In JSON it is an array of integers.
type Discriminator []byte

// Matches reports whether data starts with exactly this discriminator.
func (d Discriminator) Matches(data []byte) bool {
	return len(data) >= len(d) && bytes.Equal(data[:len(d)], d)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Discriminator) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "discriminator must be an array of bytes")
	}

	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return errors.Errorf("discriminator byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*d = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Discriminator) MarshalJSON() ([]byte, error) {
	values := make([]int, len(d))
	for i, b := range d {
		values[i] = int(b)
	}
	return json.Marshal(values)
}

// AccountDiscriminator returns Anchor's default account discriminator.
func AccountDiscriminator(name string) Discriminator {
	return hashDiscriminator("account", name)
}

// EventDiscriminator returns Anchor's default event discriminator.
func EventDiscriminator(name string) Discriminator {
	return hashDiscriminator("event", name)
}

// InstructionDiscriminator returns Anchor's default instruction
// discriminator, derived from the snake_case instruction name.
func InstructionDiscriminator(name string) Discriminator {
	return hashDiscriminator("global", toSnakeCase(name))
}

func hashDiscriminator(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	return Discriminator(sum[:DiscriminatorSize])
}

func toSnakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				sb.WriteRune('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (i *IDL) fillDefaultDiscriminators() {
	for idx := range i.Accounts {
		if len(i.Accounts[idx].Discriminator) == 0 {
			i.Accounts[idx].Discriminator = AccountDiscriminator(i.Accounts[idx].Name)
		}
	}
	for idx := range i.Events {
		if len(i.Events[idx].Discriminator) == 0 {
			i.Events[idx].Discriminator = EventDiscriminator(i.Events[idx].Name)
		}
	}
	for idx := range i.Instructions {
		if len(i.Instructions[idx].Discriminator) == 0 {
			i.Instructions[idx].Discriminator = InstructionDiscriminator(i.Instructions[idx].Name)
		}
	}
}
