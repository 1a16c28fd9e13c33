package anchor

import (
	"github.com/pkg/errors"
)

// Account is a decoded account of one of the program's account types.
type Account struct {
	Name  string
	Value interface{}
}

// ParseAccount identifies and decodes raw account data. Account types are
// tried in declaration order and the first whose discriminator matches and
// whose payload decodes wins.
func (p *Program) ParseAccount(data []byte) (*Account, error) {
	name, v, err := dispatch(p.accounts, data)
	if err != nil {
		return nil, err
	}
	return &Account{Name: name, Value: v}, nil
}

// ParseEvent identifies and decodes a single discriminator prefixed event
// payload, trying event types in declaration order.
func (p *Program) ParseEvent(data []byte) (*Event, error) {
	name, v, err := dispatch(p.events, data)
	if err != nil {
		return nil, err
	}
	return &Event{Name: name, Value: v}, nil
}

func dispatch(codecs []*Codec, data []byte) (string, interface{}, error) {
	var lastErr error
	for _, codec := range codecs {
		if !codec.disc.Matches(data) {
			continue
		}

		v, err := codec.Decode(data)
		if err != nil {
			lastErr = err
			continue
		}
		return codec.name, v, nil
	}

	if lastErr != nil {
		return "", nil, errors.Wrapf(ErrUnknownDiscriminator, "matching types failed to decode: %v", lastErr)
	}
	return "", nil, ErrUnknownDiscriminator
}
