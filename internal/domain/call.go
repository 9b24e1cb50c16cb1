package domain

// TokenCall is an entry signal on a specific token: somebody called the
// token at a price and a time, and the lab replays exit plans from there.
type TokenCall struct {
	CallID     string  // deterministic hash, see idhash
	Mint       string  // token mint address (base58)
	Symbol     string  // display symbol
	Source     string  // where the call came from (channel, author)
	CalledAtMs int64   // call timestamp, Unix milliseconds
	CallPrice  float64 // price at call time
}

// Call source constants.
const (
	CallSourceTelegram = "TELEGRAM"
	CallSourceManual   = "MANUAL"
)
