package types

import "encoding/json"

// TokenBalance is the amount held for one token.
type TokenBalance struct {
	TokenAddress Address `json:"tokenAddress"`
	TokenID      uint64  `json:"tokenId"`
	Amount       uint64  `json:"amount"`
}

// Balance is the funds visible to a contract during a call.
type Balance struct {
	UCO    uint64         `json:"uco"`
	Tokens []TokenBalance `json:"tokens"`
}

// MarshalJSON always emits tokens as an array.
func (b Balance) MarshalJSON() ([]byte, error) {
	type plain Balance
	p := plain(b)
	if p.Tokens == nil {
		p.Tokens = []TokenBalance{}
	}
	return json.Marshal(p)
}

// Token returns the amount held of a token.
func (b Balance) Token(address Address, id uint64) uint64 {
	for _, t := range b.Tokens {
		if t.TokenAddress.Equal(address) && t.TokenID == id {
			return t.Amount
		}
	}
	return 0
}
