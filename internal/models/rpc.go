package models

// SubaddrIndex mirrors the {major, minor} account/subaddress pair used
// by monero-wallet-rpc. All custodial funds live under account 0, so
// only the minor index carries meaning here.
type SubaddrIndex struct {
	Major int64 `json:"major"`
	Minor int64 `json:"minor"`
}

// IncomingTransfer is one entry from the incoming_transfers RPC method.
// Amount is in piconero.
type IncomingTransfer struct {
	Amount       int64        `json:"amount"`
	TxHash       string       `json:"tx_hash"`
	SubaddrIndex SubaddrIndex `json:"subaddr_index"`
	Unlocked     bool         `json:"unlocked"`
	BlockHeight  int64        `json:"block_height"`
	Spent        bool         `json:"spent"`
	GlobalIndex  int64        `json:"global_index"`
}

// AddressIndex returns the minor subaddress index the funds arrived at.
func (t IncomingTransfer) AddressIndex() int64 {
	return t.SubaddrIndex.Minor
}

// SubAddress is the result of a create_address call.
type SubAddress struct {
	Address      string `json:"address"`
	AddressIndex int64  `json:"address_index"`
}

// TransferBuild is the result of a transfer call made with
// do_not_relay=true: a signed but unbroadcast transaction.
type TransferBuild struct {
	Amount     int64  `json:"amount"`
	Fee        int64  `json:"fee"`
	TxHash     string `json:"tx_hash"`
	TxMetadata string `json:"tx_metadata"`
}

// RelayResult is the result of a relay_tx call.
type RelayResult struct {
	TxHash string `json:"tx_hash"`
}
