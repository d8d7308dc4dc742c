package poetenclave

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestCore(t *testing.T) *EnclaveCore {
	t.Helper()
	return NewEnclaveCore(testLogger())
}

func TestInitializeAntiSybilIDIsHashOfNodeName(t *testing.T) {
	e := newTestCore(t)
	e.Initialize(WithNodeName("node-A"))

	digest := sha256.Sum256([]byte("node-A"))
	assert.Equal(t, hex.EncodeToString(digest[:]), e.AntiSybilID())
}

func TestInitializeIsIdempotentAndReplacesID(t *testing.T) {
	e := newTestCore(t)
	e.Initialize(WithNodeName("first"))
	first := e.AntiSybilID()

	e.Initialize(WithNodeName("second"))
	second := e.AntiSybilID()

	assert.NotEqual(t, first, second)
	digest := sha256.Sum256([]byte("second"))
	assert.Equal(t, hex.EncodeToString(digest[:]), second)
}

func TestSignupInfoRoundTripVerifies(t *testing.T) {
	e := newTestCore(t)
	const opkh = "abc0000000000000000000000000000000000000000000000000000000000"

	info, err := e.CreateSignupInfo(opkh, "n1")
	require.NoError(t, err)
	require.NotEmpty(t, info.PoetPublicKey)

	err = e.VerifySignupInfo(info, opkh)
	assert.NoError(t, err)
}

func TestSignupInfoVerifyFailsOnMismatchedOriginator(t *testing.T) {
	e := newTestCore(t)
	const opkh = "abc0000000000000000000000000000000000000000000000000000000000"

	info, err := e.CreateSignupInfo(opkh, "n1")
	require.NoError(t, err)

	err = e.VerifySignupInfo(info, "different-originator-hash")
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSignupInfoVerifyFailsOnTamperedSignature(t *testing.T) {
	e := newTestCore(t)
	const opkh = "abc0000000000000000000000000000000000000000000000000000000000"

	info, err := e.CreateSignupInfo(opkh, "n1")
	require.NoError(t, err)

	var proof ProofData
	require.NoError(t, fromCanonicalJSON(info.ProofData, &proof))
	proof.VerificationReport = proof.VerificationReport + "x"
	tampered, err := canonicalJSON(proof)
	require.NoError(t, err)
	info.ProofData = tampered

	err = e.VerifySignupInfo(info, opkh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestSignupInfoSerializeParseRoundTrip(t *testing.T) {
	e := newTestCore(t)
	info, err := e.CreateSignupInfo("opkh", "nonce")
	require.NoError(t, err)

	serialized, err := info.Serialize()
	require.NoError(t, err)

	parsed, err := DeserializeSignupInfo(serialized)
	require.NoError(t, err)
	assert.Equal(t, info, parsed)
}

func TestUnsealSignupDataRestoresPublicKey(t *testing.T) {
	e := newTestCore(t)
	info, err := e.CreateSignupInfo("opkh", "nonce")
	require.NoError(t, err)
	wantPublicKey := info.PoetPublicKey

	e2 := newTestCore(t)
	got, err := e2.UnsealSignupData(info.SealedSignupData)
	require.NoError(t, err)
	assert.Equal(t, wantPublicKey, got)
	assert.Equal(t, wantPublicKey, e2.PoetPublicKey())
}

func TestCreateWaitTimerRequiresInitialization(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateWaitTimer("validator", NullBlockIdentifier, 5.0)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestCreateWaitTimerIsDeterministic(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	first, err := e.CreateWaitTimer("validator", "pcid-xyz", 5.0)
	require.NoError(t, err)

	second, err := e.CreateWaitTimer("validator", "pcid-xyz", 5.0)
	require.NoError(t, err)

	assert.Equal(t, first.Duration, second.Duration)
}

func TestCreateWaitTimerDurationFormula(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	const minimumWaitTime = 1.0
	const localMean = 5.0
	timer, err := e.CreateWaitTimer("validator", "pcid-xyz", localMean, WithMinimumWaitTime(minimumWaitTime))
	require.NoError(t, err)

	u := deterministicUniform(e.sealSecret, "pcid-xyz")
	wantDuration := minimumWaitTime - localMean*math.Log(u)

	assert.InDelta(t, wantDuration, timer.Duration, 1e-9)
	assert.GreaterOrEqual(t, timer.Duration, minimumWaitTime)
}

func TestCreateWaitTimerDurationNeverBelowMinimum(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	for _, pcid := range []string{"a", "b", "c", "the-null-block", "another-one"} {
		timer, err := e.CreateWaitTimer("validator", pcid, 3.0, WithMinimumWaitTime(2.0))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, timer.Duration, 2.0)
	}
}

func TestDeserializeWaitTimerRejectsBadSignature(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", "pcid", 5.0)
	require.NoError(t, err)

	serialized, err := timer.Serialize()
	require.NoError(t, err)

	_, ok := e.DeserializeWaitTimer(serialized, "not-a-real-signature")
	assert.False(t, ok)

	got, ok := e.DeserializeWaitTimer(serialized, timer.Signature)
	assert.True(t, ok)
	assert.Equal(t, timer.ValidatorAddress, got.ValidatorAddress)
}

func TestCreateWaitCertificateRejectsUnexpiredTimer(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", "pcid-not-genesis", 5.0)
	require.NoError(t, err)

	_, err = e.CreateWaitCertificate(timer, "block-hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not expired")
}

func TestCreateWaitCertificateGenesisBypassesTimingChecks(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", NullBlockIdentifier, 5.0)
	require.NoError(t, err)

	cert, err := e.CreateWaitCertificate(timer, "genesis-block-hash")
	require.NoError(t, err)

	assert.NoError(t, VerifyWaitCertificate(cert, e.PoetPublicKey()))
}

func TestCheckTimerWindowAcceptsAtExpiryBoundary(t *testing.T) {
	const requestTime = 1000.0
	const duration = 5.0

	assert.NoError(t, checkTimerWindow(requestTime+duration, requestTime, duration))
}

func TestCheckTimerWindowRejectsBeforeExpiry(t *testing.T) {
	const requestTime = 1000.0
	const duration = 5.0

	err := checkTimerWindow(requestTime+duration-0.001, requestTime, duration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not expired")
}

func TestCheckTimerWindowAcceptsAtTimeoutBoundary(t *testing.T) {
	const requestTime = 1000.0
	const duration = 5.0

	assert.NoError(t, checkTimerWindow(requestTime+duration+TimeoutPeriod, requestTime, duration))
}

func TestCheckTimerWindowRejectsPastTimeout(t *testing.T) {
	const requestTime = 1000.0
	const duration = 5.0

	err := checkTimerWindow(requestTime+duration+TimeoutPeriod+0.0001, requestTime, duration)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCreateWaitCertificateAcceptsExpiredNonGenesisTimer(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", "pcid", 5.0)
	require.NoError(t, err)

	e.mu.Lock()
	e.activeWaitTimer.RequestTime = nowSeconds() - timer.Duration
	timer.RequestTime = e.activeWaitTimer.RequestTime
	payload, serErr := timer.Serialize()
	require.NoError(t, serErr)
	e.keyMu.RLock()
	priv := e.poetPrivateKey
	e.keyMu.RUnlock()
	resigned := signing.Sign([]byte(payload), priv)
	e.activeWaitTimer.Signature = resigned
	timer.Signature = resigned
	e.mu.Unlock()

	cert, err := e.CreateWaitCertificate(timer, "block-hash")
	require.NoError(t, err)
	assert.NoError(t, VerifyWaitCertificate(cert, e.PoetPublicKey()))
}

func TestCreateWaitCertificateRejectsStaleTimer(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", NullBlockIdentifier, 5.0)
	require.NoError(t, err)

	_, err = e.CreateWaitTimer("validator", "some-other-pcid", 5.0)
	require.NoError(t, err)

	_, err = e.CreateWaitCertificate(timer, "block-hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not using the current wait timer")
}

func TestWaitCertificateRoundTrip(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", NullBlockIdentifier, 5.0)
	require.NoError(t, err)

	cert, err := e.CreateWaitCertificate(timer, "block-hash")
	require.NoError(t, err)

	serialized, err := cert.Serialize()
	require.NoError(t, err)

	parsed, err := DeserializeWaitCertificate(serialized, cert.Signature)
	require.NoError(t, err)
	assert.Equal(t, cert, parsed)
	assert.NoError(t, VerifyWaitCertificate(parsed, e.PoetPublicKey()))
}

func TestVerifyWaitCertificateRejectsWrongKey(t *testing.T) {
	e := newTestCore(t)
	_, err := e.CreateSignupInfo("opkh", "n1")
	require.NoError(t, err)

	timer, err := e.CreateWaitTimer("validator", NullBlockIdentifier, 5.0)
	require.NoError(t, err)

	cert, err := e.CreateWaitCertificate(timer, "block-hash")
	require.NoError(t, err)

	otherPriv, err := signing.GeneratePrivateKey()
	require.NoError(t, err)

	err = VerifyWaitCertificate(cert, signing.PublicKeyHex(otherPriv))
	assert.Error(t, err)
}

func TestDeterministicUniformIsInUnitInterval(t *testing.T) {
	var secret [32]byte
	copy(secret[:], []byte("a fixed seal secret for testing"))

	for _, pcid := range []string{"", "x", NullBlockIdentifier, "pcid-xyz"} {
		u := deterministicUniform(secret, pcid)
		assert.Greater(t, u, 0.0)
		assert.LessOrEqual(t, u, 1.0)
	}
}

func TestNowSecondsIsCurrentWallClock(t *testing.T) {
	before := float64(time.Now().Unix())
	got := nowSeconds()
	after := float64(time.Now().Unix()) + 1
	assert.GreaterOrEqual(t, got, before)
	assert.LessOrEqual(t, got, after)
}
