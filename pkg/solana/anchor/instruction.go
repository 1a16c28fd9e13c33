package anchor

import (
	"crypto/ed25519"
	"strings"

	"github.com/pkg/errors"

	"github.com/code-payments/anchor-bindings/pkg/solana"
	"github.com/code-payments/anchor-bindings/pkg/solana/idl"
)

// Args holds instruction arguments by name.
type Args map[string]interface{}

// Accounts holds instruction account addresses by flattened name. Accounts
// nested in groups are named group_child. A nil or empty address counts as
// not supplied.
type Accounts map[string]ed25519.PublicKey

type instructionArg struct {
	name string
	typ  *TargetType
}

// InstructionBuilder encodes one instruction of the program.
type InstructionBuilder struct {
	program  ed25519.PublicKey
	ix       *idl.Instruction
	accounts []idl.FlatAccount
	args     []instructionArg
	mapper   *TypeMapper
}

func newInstructionBuilder(program ed25519.PublicKey, ix *idl.Instruction, mapper *TypeMapper) (*InstructionBuilder, error) {
	b := &InstructionBuilder{
		program:  program,
		ix:       ix,
		accounts: ix.Flatten(),
		mapper:   mapper,
	}

	for _, arg := range ix.Args {
		typ, err := mapper.Map(arg.Type, false)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %s", arg.Name)
		}
		b.args = append(b.args, instructionArg{name: arg.Name, typ: typ})
	}

	return b, nil
}

func (b *InstructionBuilder) Name() string {
	return b.ix.Name
}

func (b *InstructionBuilder) Discriminator() idl.Discriminator {
	return b.ix.Discriminator
}

// AccountNames returns the flattened account names in wire order.
func (b *InstructionBuilder) AccountNames() []string {
	names := make([]string, len(b.accounts))
	for i, account := range b.accounts {
		names[i] = account.Name
	}
	return names
}

// Build encodes the instruction data and resolves the account list against
// the program address declared in the IDL.
func (b *InstructionBuilder) Build(args Args, accounts Accounts) (solana.Instruction, error) {
	return b.BuildFor(b.program, args, accounts)
}

// BuildFor is Build for a deployment of the program at another address.
// The address is used for the instruction, optional account placeholders
// and PDA derivation.
func (b *InstructionBuilder) BuildFor(program ed25519.PublicKey, args Args, accounts Accounts) (solana.Instruction, error) {
	data, err := b.EncodeData(args)
	if err != nil {
		return solana.Instruction{}, err
	}

	metas, err := b.AccountMetasFor(program, args, accounts)
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(program, data, metas...), nil
}

// EncodeData returns the discriminator followed by every argument in
// declaration order. Missing optional arguments encode as None.
func (b *InstructionBuilder) EncodeData(args Args) ([]byte, error) {
	e := newBorshEncoder(b.mapper)
	if err := e.enc.WriteBytes(b.ix.Discriminator, false); err != nil {
		return nil, encodeError(err)
	}

	for _, arg := range b.args {
		v, ok := args[arg.name]
		if !ok && arg.typ.Kind != TargetOption {
			return nil, encodeError(errors.Wrapf(ErrMissingArgument, "%s requires %s", b.ix.Name, arg.name))
		}
		if err := e.encode(arg.typ, v, 0); err != nil {
			return nil, encodeError(errors.Wrapf(err, "argument %s", arg.name))
		}
	}

	return e.Bytes(), nil
}

// AccountMetas returns one meta per flattened account in declaration order.
// Supplied addresses are used as is. Unsupplied optional accounts become a
// readonly placeholder of the program ID. Unsupplied required accounts are
// taken from their fixed address or derived from their PDA seeds.
func (b *InstructionBuilder) AccountMetas(args Args, accounts Accounts) ([]solana.AccountMeta, error) {
	return b.AccountMetasFor(b.program, args, accounts)
}

// AccountMetasFor is AccountMetas for a deployment of the program at
// another address.
func (b *InstructionBuilder) AccountMetasFor(program ed25519.PublicKey, args Args, accounts Accounts) ([]solana.AccountMeta, error) {
	if len(program) != ed25519.PublicKeySize {
		return nil, encodeError(errors.Errorf("program address must be %d bytes, got %d", ed25519.PublicKeySize, len(program)))
	}

	supplied, err := b.suppliedAccounts(accounts)
	if err != nil {
		return nil, encodeError(err)
	}

	r := &accountResolver{
		builder:   b,
		program:   program,
		args:      args,
		supplied:  supplied,
		resolved:  make(map[string]ed25519.PublicKey),
		resolving: make(map[string]struct{}),
	}

	metas := make([]solana.AccountMeta, 0, len(b.accounts))
	for i := range b.accounts {
		account := &b.accounts[i]

		if _, ok := supplied[account.Name]; !ok && account.Optional {
			metas = append(metas, solana.NewReadonlyAccountMeta(program, false))
			continue
		}

		address, err := r.resolve(account)
		if err != nil {
			return nil, encodeError(err)
		}

		if account.Writable {
			metas = append(metas, solana.NewAccountMeta(address, account.Signer))
		} else {
			metas = append(metas, solana.NewReadonlyAccountMeta(address, account.Signer))
		}
	}
	return metas, nil
}

// suppliedAccounts drops empty addresses and rejects names the instruction
// does not declare and addresses that are not 32 bytes.
func (b *InstructionBuilder) suppliedAccounts(accounts Accounts) (Accounts, error) {
	supplied := make(Accounts, len(accounts))
	for name, address := range accounts {
		if _, ok := b.account(name); !ok {
			return nil, errors.Wrapf(ErrUnknownAccount, "%s has no account %s", b.ix.Name, name)
		}
		if len(address) == 0 {
			continue
		}
		if len(address) != ed25519.PublicKeySize {
			return nil, errors.Wrapf(solana.ErrInvalidPublicKey, "account %s is %d bytes", name, len(address))
		}
		supplied[name] = address
	}
	return supplied, nil
}

func (b *InstructionBuilder) account(name string) (*idl.FlatAccount, bool) {
	for i := range b.accounts {
		if b.accounts[i].Name == name {
			return &b.accounts[i], true
		}
	}
	return nil, false
}

func (b *InstructionBuilder) arg(name string) (*TargetType, bool) {
	for _, arg := range b.args {
		if arg.name == name {
			return arg.typ, true
		}
	}
	return nil, false
}

type accountResolver struct {
	builder  *InstructionBuilder
	program  ed25519.PublicKey
	args     Args
	supplied Accounts

	resolved  map[string]ed25519.PublicKey
	resolving map[string]struct{}
}

func (r *accountResolver) resolve(account *idl.FlatAccount) (ed25519.PublicKey, error) {
	if address, ok := r.supplied[account.Name]; ok {
		return address, nil
	}
	if address, ok := r.resolved[account.Name]; ok {
		return address, nil
	}

	if _, ok := r.resolving[account.Name]; ok {
		return nil, errors.Wrapf(ErrMissingAccount, "%s derives from itself", account.Name)
	}
	r.resolving[account.Name] = struct{}{}
	defer delete(r.resolving, account.Name)

	var address ed25519.PublicKey
	var err error
	switch {
	case account.Address != "":
		address, err = solana.PublicKeyFromString(account.Address)
	case account.Pda != nil:
		address, err = r.derive(account)
	default:
		err = errors.Wrapf(ErrMissingAccount, "%s", account.Name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve account %s", account.Name)
	}

	r.resolved[account.Name] = address
	return address, nil
}

func (r *accountResolver) derive(account *idl.FlatAccount) (ed25519.PublicKey, error) {
	seeds := make([][]byte, 0, len(account.Pda.Seeds))
	for i := range account.Pda.Seeds {
		seed, err := r.seed(&account.Pda.Seeds[i])
		if err != nil {
			return nil, errors.Wrapf(err, "seed %d", i)
		}
		seeds = append(seeds, seed)
	}

	program := r.program
	if account.Pda.Program != nil {
		raw, err := r.seed(account.Pda.Program)
		if err != nil {
			return nil, errors.Wrap(err, "pda program")
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, errors.Errorf("pda program must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		program = raw
	}

	return solana.FindProgramAddress(program, seeds...)
}

func (r *accountResolver) seed(seed *idl.Seed) ([]byte, error) {
	switch seed.Kind {
	case idl.SeedKindConst:
		return seed.Value, nil
	case idl.SeedKindArg:
		return r.argSeed(seed.Path)
	case idl.SeedKindAccount:
		// Paths into account data need the account fetched, which building
		// an instruction never does.
		if seed.Account != "" && strings.Contains(seed.Path, ".") {
			return nil, errors.Wrapf(ErrMissingAccount, "seed reads account data at %s", seed.Path)
		}

		name := strings.ReplaceAll(seed.Path, ".", "_")
		account, ok := r.builder.account(name)
		if !ok {
			return nil, errors.Wrapf(ErrMissingAccount, "seed references unknown account %s", seed.Path)
		}
		return r.resolve(account)
	}
	return nil, errors.Errorf("unsupported seed kind %q", seed.Kind)
}

// argSeed returns the seed bytes of the argument at path, a dot separated
// path into struct arguments. Strings and byte sequences are used raw, other
// values in their Borsh encoding.
func (r *accountResolver) argSeed(path string) ([]byte, error) {
	parts := strings.Split(path, ".")

	typ, ok := r.builder.arg(parts[0])
	if !ok {
		return nil, errors.Wrapf(ErrMissingArgument, "seed references unknown argument %s", parts[0])
	}
	v, ok := r.args[parts[0]]
	if !ok {
		return nil, errors.Wrapf(ErrMissingArgument, "seed requires argument %s", parts[0])
	}

	for _, part := range parts[1:] {
		var err error
		typ, err = r.builder.mapper.Resolve(typ)
		if err != nil {
			return nil, err
		}

		shape, err := r.builder.mapper.Shape(typ)
		if err != nil {
			return nil, errors.Wrapf(err, "seed path %s", path)
		}

		var field *ShapeField
		for i := range shape.Fields {
			if shape.Fields[i].Name == part {
				field = &shape.Fields[i]
				break
			}
		}
		values, isFields := fieldsValue(v)
		if field == nil || !isFields {
			return nil, errors.Errorf("seed path %s does not name a field", path)
		}

		typ = field.Type
		if v, ok = values[part]; !ok {
			return nil, errors.Wrapf(ErrMissingArgument, "seed requires %s", path)
		}
	}

	typ, err := r.builder.mapper.Resolve(typ)
	if err != nil {
		return nil, err
	}

	switch {
	case typ.Kind == TargetString:
		s, ok := v.(string)
		if !ok {
			return nil, typeMismatch(typ, v)
		}
		return []byte(s), nil
	case typ.Kind == TargetBytes, (typ.Kind == TargetSlice || typ.Kind == TargetArray) && isByte(typ.Elem):
		if raw, ok := v.([]byte); ok {
			return raw, nil
		}
	}

	return encodeBorsh(r.builder.mapper, typ, v)
}

// DecodedInstruction is an instruction identified by its discriminator.
type DecodedInstruction struct {
	Name string
	Args Fields
}

// decodeArgs decodes the argument payload following the discriminator.
func (b *InstructionBuilder) decodeArgs(data []byte, allowTrailing bool) (Fields, error) {
	d := newBorshDecoder(b.mapper, data[len(b.ix.Discriminator):])

	args := make(Fields, len(b.args))
	for _, arg := range b.args {
		v, err := d.decode(arg.typ, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %s", arg.name)
		}
		args[arg.name] = v
	}

	if err := d.finish(allowTrailing); err != nil {
		return nil, err
	}
	return args, nil
}
