package racer

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LoadSigner reads the payer keypair from a Solana CLI-format keygen JSON
// file (the array-of-bytes secret key format `solana-keygen new` produces),
// the same key-material convention lightspeed_buy.rs's payer: Arc<Keypair>
// assumes.
func LoadSigner(path string) (solana.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("wallet keypair path is empty")
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair from %s: %w", path, err)
	}
	return key, nil
}
