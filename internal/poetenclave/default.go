package poetenclave

import "github.com/sirupsen/logrus"

// defaultCore is the process-wide enclave instance the package-level
// functions below dispatch to. Callers that want an independent instance
// (tests, or a process simulating more than one validator) should use
// NewEnclaveCore directly instead.
var defaultCore = NewEnclaveCore(logrus.StandardLogger())

// Initialize computes the default enclave's anti-Sybil ID. See
// EnclaveCore.Initialize.
func Initialize(opts ...Option) {
	defaultCore.Initialize(opts...)
}

// CreateSignupInfo delegates to the default enclave. validatorAddress is
// accepted but not used, retained for API parity with the other
// module-level operations.
func CreateSignupInfo(validatorAddress, originatorPublicKeyHash, nonce string) (*SignupInfo, error) {
	return defaultCore.CreateSignupInfo(originatorPublicKeyHash, nonce)
}

// UnsealSignupData delegates to the default enclave. validatorAddress is
// accepted but not used, retained for API parity.
func UnsealSignupData(validatorAddress, sealed string) (string, error) {
	return defaultCore.UnsealSignupData(sealed)
}

// VerifySignupInfo delegates to the default enclave.
func VerifySignupInfo(info *SignupInfo, originatorPublicKeyHash string) error {
	return defaultCore.VerifySignupInfo(info, originatorPublicKeyHash)
}

// CreateWaitTimer delegates to the default enclave.
func CreateWaitTimer(validatorAddress, previousCertificateID string, localMean float64, opts ...WaitTimerOption) (*WaitTimer, error) {
	return defaultCore.CreateWaitTimer(validatorAddress, previousCertificateID, localMean, opts...)
}

// DeserializeWaitTimer delegates to the default enclave.
func DeserializeWaitTimer(serialized, signature string) (*WaitTimer, bool) {
	return defaultCore.DeserializeWaitTimer(serialized, signature)
}

// CreateWaitCertificate delegates to the default enclave.
func CreateWaitCertificate(timer *WaitTimer, blockHash string) (*WaitCertificate, error) {
	return defaultCore.CreateWaitCertificate(timer, blockHash)
}

// DefaultAntiSybilID returns the default enclave's current anti-Sybil ID.
func DefaultAntiSybilID() string {
	return defaultCore.AntiSybilID()
}

// DefaultPoetPublicKey returns the default enclave's current PoET public
// key.
func DefaultPoetPublicKey() string {
	return defaultCore.PoetPublicKey()
}
