package anchor

import (
	"fmt"

	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

type strategy uint8

const (
	strategyBorsh strategy = iota
	strategyFixed
	strategyUnsupported
)

func strategyFor(s idl.Serialization) strategy {
	switch {
	case s.Kind == idl.SerializationBorsh, s.Kind == "":
		return strategyBorsh
	case s.IsFixedLayout():
		return strategyFixed
	}
	return strategyUnsupported
}

// Codec reads and writes the discriminator prefixed representation of one
// account or event type. A Codec is immutable and safe for concurrent use.
type Codec struct {
	name string
	disc idl.Discriminator
	def  *idl.TypeDef
	typ  *TargetType

	strategy strategy
	mapper   *TypeMapper
	layouts  *layoutEngine

	allowTrailing bool
}

func (p *Program) newCodec(name string, disc idl.Discriminator, s strategy, allowTrailing bool) (*Codec, error) {
	def, ok := p.doc.TypeDef(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnresolvedType, "type %q is not defined", name)
	}

	typ, err := p.mapper.Map(idl.Defined(name), false)
	if err != nil {
		return nil, err
	}

	c := &Codec{
		name:          name,
		disc:          disc,
		def:           def,
		typ:           typ,
		strategy:      s,
		mapper:        p.mapper,
		layouts:       p.layouts,
		allowTrailing: allowTrailing,
	}

	// Fixed layouts are computed up front, so a type that cannot have one
	// fails the load instead of every decode.
	if s == strategyFixed {
		if _, err := p.layouts.Layout(typ); err != nil {
			return nil, errors.Wrapf(err, "%s has no fixed layout", name)
		}
	}

	return c, nil
}

func (c *Codec) Name() string {
	return c.name
}

func (c *Codec) Discriminator() idl.Discriminator {
	return c.disc
}

// Type returns the target type values of this codec decode to.
func (c *Codec) Type() *TargetType {
	return c.typ
}

// TypeDef returns the schema definition backing the codec.
func (c *Codec) TypeDef() *idl.TypeDef {
	return c.def
}

// Size returns the encoded size, discriminator included, of a fixed layout
// codec. ok is false for variable length codecs.
func (c *Codec) Size() (size int, ok bool) {
	if c.strategy != strategyFixed {
		return 0, false
	}

	layout, err := c.layouts.Layout(c.typ)
	if err != nil {
		return 0, false
	}
	return len(c.disc) + layout.Size, true
}

// payload validates the discriminator and returns the bytes following it.
func (c *Codec) payload(data []byte) ([]byte, error) {
	if len(data) < len(c.disc) {
		return nil, decodeError(errors.Wrapf(ErrTooShortForDiscriminator, "%s: need %d bytes, got %d", c.name, len(c.disc), len(data)))
	}
	if !c.disc.Matches(data) {
		return nil, decodeError(errors.Wrapf(ErrDiscriminatorMismatch, "%s: got %v", c.name, data[:len(c.disc)]))
	}
	return data[len(c.disc):], nil
}

// Decode validates the discriminator and decodes the payload into the
// dynamic value model.
func (c *Codec) Decode(data []byte) (interface{}, error) {
	payload, err := c.payload(data)
	if err != nil {
		return nil, err
	}

	var v interface{}
	switch c.strategy {
	case strategyBorsh:
		v, err = decodeBorsh(c.mapper, c.typ, payload, c.allowTrailing)
	case strategyFixed:
		v, err = c.layouts.decodeFixed(c.typ, payload)
	default:
		err = errors.Wrapf(ErrUnsupportedSerialization, "%s uses %s", c.name, c.def.Serialization.Kind)
	}
	if err != nil {
		return nil, decodeError(errors.Wrapf(err, "failed to decode %s", c.name))
	}
	return v, nil
}

// Encode writes the discriminator followed by v in the codec's
// serialization.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	var payload []byte
	var err error
	switch c.strategy {
	case strategyBorsh:
		payload, err = encodeBorsh(c.mapper, c.typ, v)
	case strategyFixed:
		payload, err = c.layouts.encodeFixed(c.typ, v)
	default:
		err = errors.Wrapf(ErrUnsupportedSerialization, "%s uses %s", c.name, c.def.Serialization.Kind)
	}
	if err != nil {
		return nil, encodeError(errors.Wrapf(err, "failed to encode %s", c.name))
	}

	data := make([]byte, 0, len(c.disc)+len(payload))
	data = append(data, c.disc...)
	return append(data, payload...), nil
}

// DecodeInto validates the discriminator and decodes the Borsh payload into
// out, a pointer to a Go struct whose fields mirror the schema in order.
func (c *Codec) DecodeInto(data []byte, out interface{}) (err error) {
	payload, err := c.payload(data)
	if err != nil {
		return err
	}
	if c.strategy != strategyBorsh {
		return decodeError(errors.Wrapf(ErrUnsupportedSerialization, "%s is not borsh encoded", c.name))
	}

	defer func() {
		if r := recover(); r != nil {
			err = decodeError(errors.Errorf("failed to decode %s: %v", c.name, r))
		}
	}()

	if err := borsh.Deserialize(out, payload); err != nil {
		return decodeError(errors.Wrapf(err, "failed to decode %s", c.name))
	}
	return nil
}

func (c *Codec) String() string {
	return fmt.Sprintf("%s(%s)", c.name, c.def.Serialization.Kind)
}
