package anchor

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/anchor-bindings/pkg/solana"
)

// AccountFetcher loads and decodes program accounts over RPC.
type AccountFetcher struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client
}

func NewAccountFetcher(client solana.Client, configProvider ConfigProvider) *AccountFetcher {
	return &AccountFetcher{
		log:    logrus.StandardLogger().WithField("type", "anchor/fetcher"),
		conf:   configProvider(),
		client: client,
	}
}

func (f *AccountFetcher) commitment(ctx context.Context) solana.Commitment {
	raw := f.conf.commitment.Get(ctx)

	commitment, err := solana.CommitmentFromString(raw)
	if err != nil {
		f.log.WithError(err).WithField("commitment", raw).Warn("invalid commitment, using confirmed")
		return solana.CommitmentConfirmed
	}
	return commitment
}

// Fetch loads the account at address and decodes it with codec. A missing
// account is solana.ErrNoAccountInfo.
func (f *AccountFetcher) Fetch(ctx context.Context, codec *Codec, address ed25519.PublicKey) (interface{}, error) {
	info, err := f.client.GetAccountInfo(ctx, address, f.commitment(ctx))
	if err != nil {
		return nil, err
	}
	return codec.Decode(info.Data)
}

// FetchMany loads every address and decodes it with codec. The result has
// one slot per address: nil where the account does not exist or does not
// decode. Only a failed RPC call fails the batch.
func (f *AccountFetcher) FetchMany(ctx context.Context, codec *Codec, addresses []ed25519.PublicKey) ([]interface{}, error) {
	log := f.log.WithFields(logrus.Fields{
		"method":  "FetchMany",
		"account": codec.Name(),
	})

	batchSize := int(f.conf.fetchBatchSize.Get(ctx))
	if batchSize <= 0 {
		batchSize = defaultFetchBatchSize
	}
	commitment := f.commitment(ctx)

	values := make([]interface{}, len(addresses))
	for start := 0; start < len(addresses); start += batchSize {
		end := start + batchSize
		if end > len(addresses) {
			end = len(addresses)
		}

		infos, err := f.client.GetMultipleAccounts(ctx, addresses[start:end], commitment)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get accounts")
		}
		if len(infos) != end-start {
			return nil, errors.Errorf("requested %d accounts, got %d", end-start, len(infos))
		}

		for i, info := range infos {
			if info == nil {
				continue
			}

			v, err := codec.Decode(info.Data)
			if err != nil {
				log.WithError(err).WithField("address", base58.Encode(addresses[start+i])).Debug("skipping undecodable account")
				continue
			}
			values[start+i] = v
		}
	}

	return values, nil
}

// TransactionEvents fetches a transaction and decodes the program's events
// from both its log lines and its self-invoked event instructions.
func TransactionEvents(ctx context.Context, client solana.Client, program *Program, sig solana.Signature, commitment solana.Commitment) ([]Event, error) {
	logs, err := client.GetTransactionLogs(ctx, sig, commitment)
	if err != nil {
		return nil, err
	}

	events := program.EventsFromLogs(logs.LogMessages)

	var payloads [][]byte
	for _, ix := range logs.InnerInstructions {
		if bytes.Equal(ix.Program, program.ID()) {
			payloads = append(payloads, ix.Data)
		}
	}
	events = append(events, program.eventsFromCPIPayloads(payloads)...)

	program.log.WithFields(logrus.Fields{
		"signature": sig.String(),
		"events":    len(events),
	}).Trace("decoded transaction events")

	return events, nil
}
