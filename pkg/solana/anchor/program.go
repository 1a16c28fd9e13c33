// Package anchor compiles an Anchor IDL into codecs for a program's
// accounts, events and instructions.
//
// Values are read and written in their on-chain representation, which is
// little-endian throughout: integer fields, length prefixes and fixed layout
// accounts alike. Fixed layout accounts follow C layout rules for the SBF
// target, where u128 and i128 are 8 byte aligned.
//
// A Program is built once per schema and is safe for concurrent use.
package anchor

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/anchor-bindings/pkg/solana"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// Program is the compiled binding layer of one Anchor program.
type Program struct {
	log  *logrus.Entry
	conf *conf

	id  ed25519.PublicKey
	doc *idl.IDL

	mapper   *TypeMapper
	analyzer *Analyzer
	layouts  *layoutEngine

	capabilities map[string]Capabilities

	accounts       []*Codec
	accountsByName map[string]*Codec

	events       []*Codec
	eventsByName map[string]*Codec

	instructions       []*InstructionBuilder
	instructionsByName map[string]*InstructionBuilder

	constants []ConstantValue
}

// Load parses and compiles an IDL document.
func Load(data []byte, configProvider ConfigProvider) (*Program, error) {
	doc, err := idl.Parse(data)
	if err != nil {
		return nil, err
	}
	return New(doc, configProvider)
}

// New compiles a parsed IDL. Any type that cannot be mapped, any account or
// event without a codec and any invalid constant fails the load.
func New(doc *idl.IDL, configProvider ConfigProvider) (*Program, error) {
	id, err := solana.PublicKeyFromString(doc.Address)
	if err != nil {
		return nil, errors.Wrapf(idl.ErrInvalidSchema, "invalid program address: %v", err)
	}

	mapper := NewTypeMapper(doc)
	p := &Program{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":    "anchor/program",
			"program": doc.Metadata.Name,
		}),
		conf:               configProvider(),
		id:                 id,
		doc:                doc,
		mapper:             mapper,
		analyzer:           NewAnalyzer(doc),
		layouts:            newLayoutEngine(mapper),
		capabilities:       make(map[string]Capabilities),
		accountsByName:     make(map[string]*Codec),
		eventsByName:       make(map[string]*Codec),
		instructionsByName: make(map[string]*InstructionBuilder),
	}

	allowTrailing := p.conf.allowTrailingBytes.Get(context.Background())

	for i := range doc.Types {
		def := &doc.Types[i]
		caps, err := p.analyzer.Capabilities(def.Name)
		if err != nil {
			return nil, err
		}
		p.capabilities[def.Name] = caps
	}

	for _, account := range doc.Accounts {
		def, ok := doc.TypeDef(account.Name)
		if !ok {
			return nil, errors.Wrapf(ErrUnresolvedType, "account %q has no type definition", account.Name)
		}

		codec, err := p.newCodec(account.Name, account.Discriminator, strategyFor(def.Serialization), allowTrailing)
		if err != nil {
			return nil, errors.Wrapf(err, "account %s", account.Name)
		}
		p.accounts = append(p.accounts, codec)
		p.accountsByName[account.Name] = codec
	}

	// Events are always emitted with Borsh, whatever the type declares.
	for _, event := range doc.Events {
		codec, err := p.newCodec(event.Name, event.Discriminator, strategyBorsh, allowTrailing)
		if err != nil {
			return nil, errors.Wrapf(err, "event %s", event.Name)
		}
		p.events = append(p.events, codec)
		p.eventsByName[event.Name] = codec
	}

	for i := range doc.Instructions {
		ix := &doc.Instructions[i]
		builder, err := newInstructionBuilder(id, ix, mapper)
		if err != nil {
			return nil, errors.Wrapf(err, "instruction %s", ix.Name)
		}
		p.instructions = append(p.instructions, builder)
		p.instructionsByName[ix.Name] = builder
	}

	if err := p.evaluateConstants(); err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"accounts":     len(p.accounts),
		"events":       len(p.events),
		"instructions": len(p.instructions),
	}).Debug("compiled program")

	return p, nil
}

// ID returns the program address.
func (p *Program) ID() ed25519.PublicKey {
	return p.id
}

func (p *Program) IDL() *idl.IDL {
	return p.doc
}

func (p *Program) Mapper() *TypeMapper {
	return p.mapper
}

// Capabilities returns the precomputed capabilities of a type definition.
func (p *Program) Capabilities(name string) (Capabilities, bool) {
	caps, ok := p.capabilities[name]
	return caps, ok
}

func (p *Program) Account(name string) (*Codec, bool) {
	codec, ok := p.accountsByName[name]
	return codec, ok
}

// Accounts returns the account codecs in declaration order.
func (p *Program) Accounts() []*Codec {
	return p.accounts
}

func (p *Program) Event(name string) (*Codec, bool) {
	codec, ok := p.eventsByName[name]
	return codec, ok
}

// Events returns the event codecs in declaration order.
func (p *Program) Events() []*Codec {
	return p.events
}

func (p *Program) Instruction(name string) (*InstructionBuilder, bool) {
	builder, ok := p.instructionsByName[name]
	return builder, ok
}

// Instructions returns the instruction builders in declaration order.
func (p *Program) Instructions() []*InstructionBuilder {
	return p.instructions
}

// DecodeInstruction identifies instruction data by its discriminator and
// decodes its arguments.
func (p *Program) DecodeInstruction(data []byte) (*DecodedInstruction, error) {
	allowTrailing := p.conf.allowTrailingBytes.Get(context.Background())

	for _, builder := range p.instructions {
		if !builder.ix.Discriminator.Matches(data) {
			continue
		}

		args, err := builder.decodeArgs(data, allowTrailing)
		if err != nil {
			return nil, decodeError(errors.Wrapf(err, "failed to decode %s", builder.ix.Name))
		}
		return &DecodedInstruction{Name: builder.ix.Name, Args: args}, nil
	}
	return nil, ErrUnknownDiscriminator
}

// Error returns the schema error for a custom program error code.
func (p *Program) Error(code uint32) (*idl.ErrorCode, bool) {
	return p.doc.ErrorByCode(code)
}

// DecodeError maps a transaction, instruction or custom program error to
// the schema error it represents.
func (p *Program) DecodeError(err error) (*idl.ErrorCode, bool) {
	code, ok := customErrorCode(err)
	if !ok {
		return nil, false
	}
	return p.Error(code)
}

func customErrorCode(err error) (uint32, bool) {
	var custom *solana.CustomError

	var txErr *solana.TransactionError
	var ixErr *solana.InstructionError
	var code solana.CustomError
	switch {
	case errors.As(err, &txErr):
		if txErr.Instruction != nil {
			custom = txErr.Instruction.CustomError()
		}
	case errors.As(err, &ixErr):
		custom = ixErr.CustomError()
	case errors.As(err, &code):
		custom = &code
	}

	if custom == nil {
		return 0, false
	}
	return uint32(*custom), true
}
