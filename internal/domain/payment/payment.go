package payment

import "fmt"

// Method represents a payment method.
type Method string

const (
	// MethodWallet pays from the user wallet balance, settled synchronously.
	MethodWallet Method = "WALLET"

	// MethodBankTransfer is settled outside the wallet, verified by proof upload.
	MethodBankTransfer Method = "BANK_TRANSFER"

	// MethodEwallet is settled outside the wallet, verified by proof upload.
	MethodEwallet Method = "EWALLET"

	// MethodQRIS is settled outside the wallet, verified by proof upload.
	MethodQRIS Method = "QRIS"
)

func (m Method) String() string {
	return string(m)
}

// ProofBased reports whether the method settles outside the wallet and
// requires an uploaded payment proof.
func (m Method) ProofBased() bool {
	return m != MethodWallet
}

func ParseMethod(method string) (Method, error) {
	switch method {
	case "WALLET":
		return MethodWallet, nil
	case "BANK_TRANSFER":
		return MethodBankTransfer, nil
	case "EWALLET":
		return MethodEwallet, nil
	case "QRIS":
		return MethodQRIS, nil
	default:
		return "", fmt.Errorf("unknown payment method: %s", method)
	}
}

// ParseProofMethod parses a method for flows that require external settlement.
// Wallet payments are rejected because they never carry a proof.
func ParseProofMethod(method string) (Method, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return "", err
	}

	if !m.ProofBased() {
		return "", fmt.Errorf("payment method is not proof based: %s", method)
	}

	return m, nil
}
