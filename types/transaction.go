package types

// TransactionType names the kind of a transaction.
type TransactionType string

const (
	ContractType TransactionType = "contract"
	TransferType TransactionType = "transfer"
	DataType     TransactionType = "data"
	TokenType    TransactionType = "token"
)

// Transaction mirrors the chain transaction shape exchanged with contracts.
type Transaction struct {
	Address           Address          `json:"address,omitempty"`
	Type              TransactionType  `json:"type,omitempty"`
	Data              TransactionData  `json:"data"`
	PreviousPublicKey PublicKey        `json:"previousPublicKey,omitempty"`
	PreviousSignature Bytes            `json:"previousSignature,omitempty"`
	Genesis           Address          `json:"genesis,omitempty"`
	ValidationStamp   *ValidationStamp `json:"validationStamp,omitempty"`
}

type TransactionData struct {
	Content    string      `json:"content,omitempty"`
	Code       string      `json:"code,omitempty"`
	Ledger     *Ledger     `json:"ledger,omitempty"`
	Recipients []Recipient `json:"recipients,omitempty"`
	Ownerships []Ownership `json:"ownerships,omitempty"`
}

type Ledger struct {
	UCO   *UCOLedger   `json:"uco,omitempty"`
	Token *TokenLedger `json:"token,omitempty"`
}

type UCOLedger struct {
	Transfers []UCOTransfer `json:"transfers"`
}

type UCOTransfer struct {
	To     Address `json:"to"`
	Amount uint64  `json:"amount"`
}

type TokenLedger struct {
	Transfers []TokenTransfer `json:"transfers"`
}

type TokenTransfer struct {
	To           Address `json:"to"`
	Amount       uint64  `json:"amount"`
	TokenAddress Address `json:"tokenAddress"`
	TokenID      uint64  `json:"tokenId"`
}

// Recipient is a contract the transaction triggers, optionally naming an
// action and its arguments.
type Recipient struct {
	Address Address `json:"address"`
	Action  string  `json:"action,omitempty"`
	Args    []Value `json:"args,omitempty"`
}

// Ownership gives authorized keys access to an encrypted secret.
type Ownership struct {
	Secret         Bytes           `json:"secret"`
	AuthorizedKeys []AuthorizedKey `json:"authorizedKeys"`
}

type AuthorizedKey struct {
	PublicKey    PublicKey `json:"publicKey"`
	EncryptedKey Bytes     `json:"encryptedSecretKey"`
}

type ValidationStamp struct {
	LedgerOperations LedgerOperations `json:"ledgerOperations"`
}

type LedgerOperations struct {
	UnspentOutputs []UnspentOutput `json:"unspentOutputs"`
}

// Unspent output kinds.
const (
	UTXOState = "state"
	UTXOUCO   = "UCO"
	UTXOToken = "token"
)

// UnspentOutput is one entry of a validation stamp. State outputs carry the
// contract state; UCO and token outputs carry an amount.
type UnspentOutput struct {
	Type         string  `json:"type"`
	From         string  `json:"from"`
	Amount       uint64  `json:"amount,omitempty"`
	State        *Value  `json:"state,omitempty"`
	TokenAddress Address `json:"tokenAddress,omitempty"`
	TokenIndex   uint64  `json:"tokenIndex,omitempty"`
}

// StateOutput returns the state carried by the first state output.
func (t *Transaction) StateOutput() (Value, bool) {
	if t == nil || t.ValidationStamp == nil {
		return Null(), false
	}
	for _, utxo := range t.ValidationStamp.LedgerOperations.UnspentOutputs {
		if utxo.Type == UTXOState && utxo.State != nil {
			return *utxo.State, true
		}
	}
	return Null(), false
}

// Clone returns a copy that shares no slices with t.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	var out Transaction
	if err := MustValue(t).Decode(&out); err != nil {
		panic(err)
	}
	return &out
}
