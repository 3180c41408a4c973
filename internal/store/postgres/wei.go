package postgres

import (
	"fmt"
	"math/big"
)

// Wei amounts cross the SQL boundary as decimal text; NUMERIC scanning would
// also work but text keeps the round trip trivially lossless.

func weiToText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func textToWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: invalid wei amount %q", s)
	}
	return v, nil
}

func amountsToText(amounts []*big.Int) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = weiToText(a)
	}
	return out
}

func textToAmounts(texts []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(texts))
	for i, s := range texts {
		v, err := textToWei(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
