package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

const instructionErrorKey = "InstructionError"

// CustomError is the numerical error returned by a non-system program.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", uint32(c))
}

// InstructionError indicates an instruction returned an error in a
// transaction.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

// CustomError returns the program specific error code, if any.
func (i InstructionError) CustomError() *CustomError {
	if ce, ok := i.Err.(CustomError); ok {
		return &ce
	}
	return nil
}

// TransactionError is the parsed "err" field of a transaction's metadata.
type TransactionError struct {
	Key         string
	Instruction *InstructionError
}

func (t TransactionError) Error() string {
	if t.Instruction != nil {
		return t.Instruction.Error()
	}
	return t.Key
}

// ParseTransactionError parses the JSON error returned from the "err" field
// of transaction metadata. A nil input means the transaction succeeded.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{Key: t}, nil
	case map[string]interface{}:
		if len(t) != 1 {
			return nil, errors.Errorf("invalid transaction error size: %d", len(t))
		}

		for key, value := range t {
			if key != instructionErrorKey {
				return &TransactionError{Key: key}, nil
			}

			ixErr, err := parseInstructionError(value)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse instruction error")
			}
			return &TransactionError{Key: key, Instruction: ixErr}, nil
		}
	}

	return nil, errors.Errorf("unhandled transaction error type %T", raw)
}

// parseInstructionError parses an [index, error] tuple.
func parseInstructionError(v interface{}) (*InstructionError, error) {
	values, ok := v.([]interface{})
	if !ok || len(values) != 2 {
		return nil, errors.New("instruction error must be an [index, error] tuple")
	}

	index, err := parseJSONNumber(values[0])
	if err != nil {
		return nil, err
	}

	ixErr := &InstructionError{Index: int(index)}
	switch detail := values[1].(type) {
	case string:
		ixErr.Err = errors.New(detail)
	case map[string]interface{}:
		if len(detail) != 1 {
			return nil, errors.Errorf("invalid instruction error size: %d", len(detail))
		}
		for key, value := range detail {
			if key != "Custom" {
				ixErr.Err = errors.New(key)
				continue
			}

			code, err := parseJSONNumber(value)
			if err != nil || code < 0 || code > int64(^uint32(0)) {
				return nil, errors.Errorf("invalid custom error code %v", value)
			}
			ixErr.Err = CustomError(code)
		}
	default:
		return nil, errors.Errorf("unhandled instruction error type %T", detail)
	}

	return ixErr, nil
}

func parseJSONNumber(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, errors.Errorf("non numeric value %v", v)
}
