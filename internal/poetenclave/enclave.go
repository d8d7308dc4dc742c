// Package poetenclave implements a software emulation of a trusted SGX
// enclave participating in Proof-of-Elapsed-Time leader election: signup
// attestation, exponentially-distributed wait timers, and wait
// certificates, along with the SGX quote / attestation verification report
// structure a hardware enclave would also produce.
package poetenclave

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/sirupsen/logrus"
)

// NullBlockIdentifier is the sentinel previous-certificate-id for the
// genesis wait timer. Block wrapper semantics live outside this package
// (spec.md's consensus journal / block wrapper are explicitly out of
// scope); this constant is consumed as an opaque value.
const NullBlockIdentifier = "0000000000000000000000000000000000000000000000000000000000000000000000000000"

// DefaultMinimumWaitTime is the minimum_wait_time used by CreateWaitTimer
// when the caller does not supply WithMinimumWaitTime.
const DefaultMinimumWaitTime = 1.0

// TimeoutPeriod bounds how long after expiry a wait timer may still be
// turned into a wait certificate.
const TimeoutPeriod = 30.0

var (
	validBasename = mustHexDecode(
		"b785c58b77152cbe7fd55ee3851c499000000000000000000000000000000000")
	validMeasurement = mustHexDecode(
		"c99f21955e38dbb03d2ca838d3af6e43ef438926ed02db4cc729380c8c7a174e")
)

func mustHexDecode(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// EnclaveCore is a single simulated enclave: it owns a PoET keypair and at
// most one active wait timer. The zero value is not usable; construct with
// NewEnclaveCore.
type EnclaveCore struct {
	log *logrus.Logger

	// mu guards the mutating operations named in spec.md section 5:
	// CreateSignupInfo, UnsealSignupData, CreateWaitTimer,
	// CreateWaitCertificate, and DeserializeWaitTimer.
	mu sync.Mutex

	// keyMu guards the PoET keypair and anti-Sybil ID so that the
	// non-locking read-only operations (VerifySignupInfo,
	// VerifyWaitCertificate) can read them without taking mu.
	keyMu sync.RWMutex

	sealSecret      [32]byte
	antiSybilID     string
	poetPrivateKey  *secp256k1.PrivateKey
	poetPublicKey   string
	activeWaitTimer *WaitTimer

	quotes *quoteCache
}

// Option configures Initialize.
type Option func(*initOptions)

type initOptions struct {
	nodeName string
}

// WithNodeName sets the node name Initialize hashes into the anti-Sybil ID.
// Without it, Initialize falls back to the current timestamp.
func WithNodeName(name string) Option {
	return func(o *initOptions) { o.nodeName = name }
}

// NewEnclaveCore constructs an independent enclave instance with its own
// seal key, so tests (and multiple validators in one process) never share
// state.
func NewEnclaveCore(log *logrus.Logger) *EnclaveCore {
	if log == nil {
		log = logrus.New()
	}
	e := &EnclaveCore{
		log:    log,
		quotes: newQuoteCache(),
	}
	if _, err := rand.Read(e.sealSecret[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken, which leaves the process unable to do anything
		// cryptographic anyway.
		panic(fmt.Sprintf("poetenclave: failed to seed seal secret: %v", err))
	}
	return e
}

// Initialize computes the anti-Sybil ID for this enclave. It is idempotent
// per process: calling it again replaces the anti-Sybil ID. Per spec.md
// section 5, Initialize does not take mu.
func (e *EnclaveCore) Initialize(opts ...Option) {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}
	seed := o.nodeName
	if seed == "" {
		seed = time.Now().Format(time.RFC3339Nano)
	}
	digest := sha256.Sum256([]byte(seed))

	e.keyMu.Lock()
	e.antiSybilID = hex.EncodeToString(digest[:])
	e.keyMu.Unlock()
}

// AntiSybilID returns the anti-Sybil ID computed by the most recent call to
// Initialize, or the empty string if Initialize has not been called.
func (e *EnclaveCore) AntiSybilID() string {
	e.keyMu.RLock()
	defer e.keyMu.RUnlock()
	return e.antiSybilID
}

// PoetPublicKey returns the hex-encoded public key of the enclave's current
// PoET keypair, or "" if neither CreateSignupInfo nor UnsealSignupData has
// been called yet.
func (e *EnclaveCore) PoetPublicKey() string {
	e.keyMu.RLock()
	defer e.keyMu.RUnlock()
	return e.poetPublicKey
}

// CreateSignupInfo generates a fresh PoET keypair, clears the active wait
// timer, and returns a signed SignupInfo a validator can broadcast.
func (e *EnclaveCore) CreateSignupInfo(originatorPublicKeyHash, nonce string) (info *SignupInfo, err error) {
	defer func() { observeResult(signupInfoTotal, "create", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	priv, err := signing.GeneratePrivateKey()
	if err != nil {
		return nil, newMalformedError("could not generate poet keypair", err)
	}
	poetPublicKey := signing.PublicKeyHex(priv)

	e.keyMu.Lock()
	e.poetPrivateKey = priv
	e.poetPublicKey = poetPublicKey
	e.keyMu.Unlock()
	e.activeWaitTimer = nil

	sealed, err := sealSignupData(poetPublicKey, signing.PrivateKeyHex(priv))
	if err != nil {
		return nil, err
	}

	quote := SgxQuote{}
	copy(quote.Basename.Name[:], validBasename)
	copy(quote.ReportBody.MrEnclave.M[:], validMeasurement)
	quote.ReportBody.ReportData = NewSgxReportData(reportDataDigest(originatorPublicKeyHash, poetPublicKey))

	pseManifest := base64.StdEncoding.EncodeToString([]byte(originatorPublicKeyHash))
	timestamp := time.Now().Format(time.RFC3339Nano)

	report := VerificationReport{
		EpidPseudonym:         originatorPublicKeyHash,
		ID:                    doubleEncodedDigest(timestamp),
		IsvEnclaveQuoteStatus: "OK",
		IsvEnclaveQuoteBody:   base64.StdEncoding.EncodeToString(quote.Serialize()),
		PseManifestStatus:     "OK",
		PseManifestHash:       doubleEncodedDigest(pseManifest),
		Nonce:                 nonce,
		Timestamp:             timestamp,
	}

	reportJSON, err := canonicalJSON(report)
	if err != nil {
		return nil, newMalformedError("could not encode verification report", err)
	}

	signature, err := signReportWithRSA([]byte(reportJSON))
	if err != nil {
		return nil, newMalformedError("could not sign verification report", err)
	}

	proof := ProofData{
		EvidencePayload:    EvidencePayload{PseManifest: pseManifest},
		VerificationReport: reportJSON,
		Signature:          base64.StdEncoding.EncodeToString(signature),
	}
	proofJSON, err := canonicalJSON(proof)
	if err != nil {
		return nil, newMalformedError("could not encode proof data", err)
	}

	e.log.WithFields(logrus.Fields{
		"anti_sybil_id":   originatorPublicKeyHash,
		"poet_public_key": poetPublicKey,
	}).Info("created signup info")

	return &SignupInfo{
		PoetPublicKey:    poetPublicKey,
		ProofData:        proofJSON,
		AntiSybilID:      originatorPublicKeyHash,
		SealedSignupData: sealed,
	}, nil
}

// sealSignupData "seals" (base64-encodes a JSON object containing) the
// PoET keypair. This is not encryption: anyone holding the sealed bytes can
// recover the private key, matching spec.md's non-goal of real
// confidentiality.
func sealSignupData(poetPublicKey, poetPrivateKey string) (string, error) {
	payload, err := canonicalJSON(signupData{
		PoetPublicKey:  poetPublicKey,
		PoetPrivateKey: poetPrivateKey,
	})
	if err != nil {
		return "", newMalformedError("could not encode signup data", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(payload)), nil
}

// reportDataDigest computes SHA256(upper(OPKH) || upper(PPK)).
func reportDataDigest(originatorPublicKeyHash, poetPublicKey string) []byte {
	input := strings.ToUpper(originatorPublicKeyHash) + strings.ToUpper(poetPublicKey)
	digest := sha256.Sum256([]byte(input))
	return digest[:]
}

// doubleEncodedDigest reproduces the reference implementation's
// base64(hex(sha256(s))) construction, preserved verbatim per spec.md
// section 9's open question about the double encoding.
func doubleEncodedDigest(s string) string {
	digest := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(digest[:])))
}

func signReportWithRSA(data []byte) ([]byte, error) {
	return rsaSignPKCS1v15SHA256(reportPrivateKey, data)
}

// DeserializeSignupInfo is a pure parser; it performs no verification.
func DeserializeSignupInfo(serialized string) (*SignupInfo, error) {
	return ParseSignupInfo(serialized)
}

// UnsealSignupData restores the enclave's PoET keypair from a previously
// sealed payload, clears the active wait timer, and returns the restored
// public key.
func (e *EnclaveCore) UnsealSignupData(sealed string) (poetPublicKey string, err error) {
	defer func() { observeResult(signupInfoTotal, "unseal", err) }()

	raw, decErr := base64.StdEncoding.DecodeString(sealed)
	if decErr != nil {
		return "", newMalformedError("could not decode sealed signup data", decErr)
	}
	var data signupData
	if jsonErr := fromCanonicalJSON(string(raw), &data); jsonErr != nil {
		return "", newMalformedError("could not parse sealed signup data", jsonErr)
	}

	priv, keyErr := signing.PrivateKeyFromHex(data.PoetPrivateKey)
	if keyErr != nil {
		return "", newMalformedError("could not restore poet private key", keyErr)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.keyMu.Lock()
	e.poetPrivateKey = priv
	e.poetPublicKey = data.PoetPublicKey
	e.keyMu.Unlock()
	e.activeWaitTimer = nil

	return data.PoetPublicKey, nil
}

// VerifySignupInfo fails with a ValidationError describing the first
// contract violation found, in the order spec.md section 4.1.4 lists them.
// It reads the enclave's currently-configured PoET public key (not the one
// in info) when re-deriving the expected report data -- see spec.md
// section 9's open question.
func (e *EnclaveCore) VerifySignupInfo(info *SignupInfo, originatorPublicKeyHash string) (err error) {
	defer func() { observeResult(signupInfoTotal, "verify", err) }()

	if info == nil {
		return newValidationError("signup info is missing")
	}

	var proof ProofData
	if jsonErr := fromCanonicalJSON(info.ProofData, &proof); jsonErr != nil {
		return newValidationError("proof data could not be parsed")
	}
	if proof.VerificationReport == "" {
		return newValidationError("verification report is missing from proof data")
	}
	if proof.Signature == "" {
		return newValidationError("signature is missing from proof data")
	}

	sigBytes, decErr := base64.StdEncoding.DecodeString(proof.Signature)
	if decErr != nil {
		return newValidationError("signature is not valid base64")
	}
	if vErr := rsaVerifyPKCS1v15SHA256(reportPublicKey, []byte(proof.VerificationReport), sigBytes); vErr != nil {
		return newValidationError("verification report signature is invalid")
	}

	var report VerificationReport
	if jsonErr := fromCanonicalJSON(proof.VerificationReport, &report); jsonErr != nil {
		return newValidationError("verification report could not be parsed")
	}
	if report.ID == "" {
		return newValidationError("verification report does not contain an id")
	}
	if report.EpidPseudonym == "" {
		return newValidationError("verification report does not contain an epid pseudonym")
	}
	if report.EpidPseudonym != info.AntiSybilID {
		return newValidationError(fmt.Sprintf(
			"the anti-sybil id in the verification report [%s] does not match the one in the signup info [%s]",
			report.EpidPseudonym, info.AntiSybilID))
	}
	if report.PseManifestStatus == "" {
		return newValidationError("verification report does not contain a pse manifest status")
	}
	if !strings.EqualFold(report.PseManifestStatus, "OK") {
		return newValidationError(fmt.Sprintf("pse manifest status is %s (i.e., not OK)", report.PseManifestStatus))
	}
	if report.PseManifestHash == "" {
		return newValidationError("verification report does not contain a pse manifest hash")
	}
	if proof.EvidencePayload.PseManifest == "" {
		return newValidationError("evidence payload does not include a pse manifest")
	}

	expectedPseManifestHash := doubleEncodedDigest(proof.EvidencePayload.PseManifest)
	if !strings.EqualFold(report.PseManifestHash, expectedPseManifestHash) {
		return newValidationError(fmt.Sprintf(
			"pse manifest hash %s does not match %s", report.PseManifestHash, expectedPseManifestHash))
	}

	if report.IsvEnclaveQuoteStatus == "" {
		return newValidationError("verification report does not contain an enclave quote status")
	}
	if !strings.EqualFold(report.IsvEnclaveQuoteStatus, "OK") {
		return newValidationError(fmt.Sprintf("enclave quote status is %s (i.e., not OK)", report.IsvEnclaveQuoteStatus))
	}
	if report.IsvEnclaveQuoteBody == "" {
		return newValidationError("verification report does not contain an enclave quote")
	}

	quoteRaw, decErr := base64.StdEncoding.DecodeString(report.IsvEnclaveQuoteBody)
	if decErr != nil {
		return newValidationError("enclave quote is not valid base64")
	}
	quote, parseErr := e.quotes.parse(report.IsvEnclaveQuoteBody, quoteRaw)
	if parseErr != nil {
		return newValidationError("enclave quote could not be parsed")
	}

	currentPoetPublicKey := e.PoetPublicKey()
	expectedReportData := NewSgxReportData(reportDataDigest(originatorPublicKeyHash, currentPoetPublicKey))
	if quote.ReportBody.ReportData.D != expectedReportData.D {
		return newValidationError(fmt.Sprintf(
			"avr report data [%x] not equal to [%x]",
			quote.ReportBody.ReportData.D, expectedReportData.D))
	}

	if quote.ReportBody.MrEnclave.M != validMeasurementArray() {
		return newValidationError(fmt.Sprintf(
			"avr enclave measurement [%x] not equal to [%x]", quote.ReportBody.MrEnclave.M, validMeasurement))
	}

	if quote.Basename.Name != validBasenameArray() {
		return newValidationError(fmt.Sprintf(
			"avr enclave basename [%x] not equal to [%x]", quote.Basename.Name, validBasename))
	}

	return nil
}

func validMeasurementArray() [SgxMeasurementSize]byte {
	var a [SgxMeasurementSize]byte
	copy(a[:], validMeasurement)
	return a
}

func validBasenameArray() [SgxBasenameSize]byte {
	var a [SgxBasenameSize]byte
	copy(a[:], validBasename)
	return a
}

// WaitTimerOption configures CreateWaitTimer.
type WaitTimerOption func(*waitTimerOptions)

type waitTimerOptions struct {
	minimumWaitTime float64
}

// WithMinimumWaitTime overrides CreateWaitTimer's default minimum wait time
// of DefaultMinimumWaitTime.
func WithMinimumWaitTime(seconds float64) WaitTimerOption {
	return func(o *waitTimerOptions) { o.minimumWaitTime = seconds }
}

// CreateWaitTimer draws a wait duration from the tail of an exponential
// distribution, seeded deterministically from previousCertificateID so
// every peer can cross-check the draw, signs the resulting timer, and
// installs it as the enclave's active wait timer.
func (e *EnclaveCore) CreateWaitTimer(
	validatorAddress, previousCertificateID string,
	localMean float64,
	opts ...WaitTimerOption,
) (timer *WaitTimer, err error) {
	defer func() {
		observeResult(waitTimerTotal, "create", err)
		if err == nil {
			waitTimerDuration.WithLabelValues().Observe(timer.Duration)
		}
	}()

	o := waitTimerOptions{minimumWaitTime: DefaultMinimumWaitTime}
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.keyMu.RLock()
	priv := e.poetPrivateKey
	e.keyMu.RUnlock()
	if priv == nil {
		return nil, ErrNotInitialized
	}

	u := deterministicUniform(e.sealSecret, previousCertificateID)
	duration := o.minimumWaitTime - localMean*math.Log(u)

	wt := &WaitTimer{
		ValidatorAddress:      validatorAddress,
		Duration:              duration,
		PreviousCertificateID: previousCertificateID,
		LocalMean:             localMean,
		RequestTime:           nowSeconds(),
	}
	payload, serErr := wt.Serialize()
	if serErr != nil {
		return nil, newMalformedError("could not serialize wait timer", serErr)
	}
	wt.Signature = signing.Sign([]byte(payload), priv)

	e.activeWaitTimer = wt

	return wt, nil
}

// deterministicUniform derives a value in (0, 1] from previousCertificateID
// using HMAC-SHA256(sealSecret, previousCertificateID), taking the low 8
// bytes as a little-endian uint64. This replaces the reference
// implementation's "sign the cert id with the seal key" draw per spec.md
// section 9's explicitly sanctioned alternative; it is deterministic for a
// fixed sealSecret and previousCertificateID, which is what guarantees two
// successive CreateWaitTimer calls with identical inputs produce identical
// durations.
func deterministicUniform(sealSecret [32]byte, previousCertificateID string) float64 {
	mac := hmac.New(sha256.New, sealSecret[:])
	mac.Write([]byte(previousCertificateID))
	tag := mac.Sum(nil)
	low8 := tag[len(tag)-8:]
	n := binary.LittleEndian.Uint64(low8)
	u := float64(n) / float64(^uint64(0))
	if u == 0 {
		// math.Log(0) is -Inf; this happens with probability 2^-64
		// and would otherwise produce an infinite duration.
		u = 1.0 / float64(^uint64(0))
	}
	return u
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// checkTimerWindow enforces the non-genesis expire/timeout window: now must
// be at or after requestTime+duration (the timer has expired) and at or
// before requestTime+duration+TimeoutPeriod (the window has not closed).
// Factored out of CreateWaitCertificate so the boundary conditions are
// testable without sleeping.
func checkTimerWindow(now, requestTime, duration float64) error {
	expireTime := requestTime + duration
	if now < expireTime {
		return newValidationError("timer has not expired")
	}
	timeOutTime := expireTime + TimeoutPeriod
	if now > timeOutTime {
		return newValidationError("timer has timed out")
	}
	return nil
}

// DeserializeWaitTimer verifies signature against the enclave's current
// PoET public key before parsing serialized. Unlike every other operation,
// a bad signature is reported by returning ok=false rather than an error,
// preserving the reference implementation's contract.
func (e *EnclaveCore) DeserializeWaitTimer(serialized, signature string) (timer *WaitTimer, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.keyMu.RLock()
	pub := e.poetPublicKey
	e.keyMu.RUnlock()

	if pub == "" || !signing.Verify([]byte(serialized), signature, pub) {
		return nil, false
	}

	t, err := ParseWaitTimer(serialized, signature)
	if err != nil {
		return nil, false
	}
	return t, true
}

// CreateWaitCertificate validates that timer is the enclave's active wait
// timer and, for non-genesis timers, that it has expired but not timed
// out, then signs and returns the resulting certificate. It clears the
// active wait timer on success.
func (e *EnclaveCore) CreateWaitCertificate(timer *WaitTimer, blockHash string) (cert *WaitCertificate, err error) {
	defer func() { observeResult(waitCertificateTotal, "create", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.keyMu.RLock()
	priv := e.poetPrivateKey
	e.keyMu.RUnlock()
	if priv == nil {
		return nil, ErrNotInitialized
	}

	if e.activeWaitTimer == nil {
		return nil, newValidationError("there is not a current enclave active wait timer")
	}

	if timer == nil {
		return nil, newValidationError("validator is not using the current wait timer")
	}
	callerPayload, serErr := timer.Serialize()
	if serErr != nil {
		return nil, newMalformedError("could not serialize caller wait timer", serErr)
	}
	recomputed := signing.Sign([]byte(callerPayload), priv)
	if e.activeWaitTimer.Signature != recomputed {
		return nil, newValidationError("validator is not using the current wait timer")
	}

	isNotGenesis := e.activeWaitTimer.PreviousCertificateID != NullBlockIdentifier
	now := nowSeconds()
	if isNotGenesis {
		if windowErr := checkTimerWindow(now, e.activeWaitTimer.RequestTime, e.activeWaitTimer.Duration); windowErr != nil {
			return nil, windowErr
		}
	}

	nonceSource, nsErr := canonicalJSON(struct {
		WaitTimerSignature string `json:"wait_timer_signature"`
		Now                string `json:"now"`
	}{
		WaitTimerSignature: e.activeWaitTimer.Signature,
		Now:                time.Now().UTC().Format("2006-01-02T15:04:05.999999"),
	})
	if nsErr != nil {
		return nil, newMalformedError("could not build certificate nonce", nsErr)
	}
	nonceDigest := sha256.Sum256([]byte(nonceSource))

	c := &WaitCertificate{
		ValidatorAddress:      e.activeWaitTimer.ValidatorAddress,
		Duration:              e.activeWaitTimer.Duration,
		PreviousCertificateID: e.activeWaitTimer.PreviousCertificateID,
		LocalMean:             e.activeWaitTimer.LocalMean,
		RequestTime:           e.activeWaitTimer.RequestTime,
		Nonce:                 hex.EncodeToString(nonceDigest[:]),
		BlockHash:             blockHash,
	}
	certPayload, serErr := c.Serialize()
	if serErr != nil {
		return nil, newMalformedError("could not serialize wait certificate", serErr)
	}
	c.Signature = signing.Sign([]byte(certPayload), priv)

	e.activeWaitTimer = nil

	return c, nil
}

// DeserializeWaitCertificate is a pure parser; it performs no verification.
func DeserializeWaitCertificate(serialized, signature string) (*WaitCertificate, error) {
	return ParseWaitCertificate(serialized, signature)
}

// VerifyWaitCertificate checks cert's signature against poetPublicKey,
// taken in its canonical hex form without re-decoding.
func VerifyWaitCertificate(cert *WaitCertificate, poetPublicKey string) (err error) {
	defer func() { observeResult(waitCertificateTotal, "verify", err) }()

	if cert == nil {
		return newValidationError("wait certificate is missing")
	}
	payload, serErr := cert.Serialize()
	if serErr != nil {
		return newMalformedError("could not serialize wait certificate", serErr)
	}
	if !signing.Verify([]byte(payload), cert.Signature, poetPublicKey) {
		return newValidationError("wait certificate signature does not match")
	}
	return nil
}
