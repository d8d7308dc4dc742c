package poetenclave

// SignupInfo is the artifact a validator broadcasts so peers can verify it
// is running a genuine (simulated) enclave before trusting its wait
// certificates.
type SignupInfo struct {
	PoetPublicKey    string `json:"poet_public_key"`
	ProofData        string `json:"proof_data"`
	AntiSybilID      string `json:"anti_sybil_id"`
	SealedSignupData string `json:"sealed_signup_data"`
}

// Serialize encodes info as canonical JSON.
func (info *SignupInfo) Serialize() (string, error) {
	return canonicalJSON(info)
}

// ParseSignupInfo decodes a SignupInfo previously produced by Serialize (or
// any equivalent JSON encoding of the same fields).
func ParseSignupInfo(serialized string) (*SignupInfo, error) {
	var info SignupInfo
	if err := fromCanonicalJSON(serialized, &info); err != nil {
		return nil, newMalformedError("could not parse signup info", err)
	}
	return &info, nil
}

// ProofData is the proof-of-attestation payload embedded, as a JSON string,
// in SignupInfo.ProofData.
type ProofData struct {
	EvidencePayload    EvidencePayload `json:"evidence_payload"`
	VerificationReport string          `json:"verification_report"`
	Signature          string          `json:"signature"`
}

// EvidencePayload carries the (fake) PSE manifest.
type EvidencePayload struct {
	PseManifest string `json:"pse_manifest"`
}

// VerificationReport is the attestation verification report the simulator
// signs with the embedded report private key. Field names match the real
// Intel Attestation Service response this simulates, which is why they are
// not snake_case like the rest of this package's wire types.
type VerificationReport struct {
	EpidPseudonym         string `json:"epidPseudonym"`
	ID                    string `json:"id"`
	IsvEnclaveQuoteStatus string `json:"isvEnclaveQuoteStatus"`
	IsvEnclaveQuoteBody   string `json:"isvEnclaveQuoteBody"`
	PseManifestStatus     string `json:"pseManifestStatus"`
	PseManifestHash       string `json:"pseManifestHash"`
	Nonce                 string `json:"nonce"`
	Timestamp             string `json:"timestamp"`
}

// waitTimerPayload is WaitTimer minus its signature -- the exact bytes that
// get signed and, on the other end, re-signed for comparison.
type waitTimerPayload struct {
	ValidatorAddress      string  `json:"validator_address"`
	Duration              float64 `json:"duration"`
	PreviousCertificateID string  `json:"previous_certificate_id"`
	LocalMean             float64 `json:"local_mean"`
	RequestTime           float64 `json:"request_time"`
}

// WaitTimer is the enclave's promise that a validator may publish the next
// block once Duration seconds have elapsed since RequestTime.
type WaitTimer struct {
	ValidatorAddress      string  `json:"validator_address"`
	Duration              float64 `json:"duration"`
	PreviousCertificateID string  `json:"previous_certificate_id"`
	LocalMean             float64 `json:"local_mean"`
	RequestTime           float64 `json:"request_time"`
	Signature             string  `json:"signature,omitempty"`
}

func (t *WaitTimer) payload() waitTimerPayload {
	return waitTimerPayload{
		ValidatorAddress:      t.ValidatorAddress,
		Duration:              t.Duration,
		PreviousCertificateID: t.PreviousCertificateID,
		LocalMean:             t.LocalMean,
		RequestTime:           t.RequestTime,
	}
}

// Serialize encodes the timer's signable fields (everything but the
// signature) as canonical JSON.
func (t *WaitTimer) Serialize() (string, error) {
	return canonicalJSON(t.payload())
}

// ParseWaitTimer decodes a WaitTimer's signable fields and attaches the
// signature passed in separately, matching the on-wire contract where a
// timer and its signature travel as two values.
func ParseWaitTimer(serialized, signature string) (*WaitTimer, error) {
	var payload waitTimerPayload
	if err := fromCanonicalJSON(serialized, &payload); err != nil {
		return nil, newMalformedError("could not parse wait timer", err)
	}
	return &WaitTimer{
		ValidatorAddress:      payload.ValidatorAddress,
		Duration:              payload.Duration,
		PreviousCertificateID: payload.PreviousCertificateID,
		LocalMean:             payload.LocalMean,
		RequestTime:           payload.RequestTime,
		Signature:             signature,
	}, nil
}

// waitCertificatePayload is WaitCertificate minus its signature.
type waitCertificatePayload struct {
	ValidatorAddress      string  `json:"validator_address"`
	Duration              float64 `json:"duration"`
	PreviousCertificateID string  `json:"previous_certificate_id"`
	LocalMean             float64 `json:"local_mean"`
	RequestTime           float64 `json:"request_time"`
	Nonce                 string  `json:"nonce"`
	BlockHash             string  `json:"block_hash"`
}

// WaitCertificate authorizes a validator to publish a block: it is derived
// 1:1 from the WaitTimer it was built over, plus a nonce and the block hash
// the timer was waiting on.
type WaitCertificate struct {
	ValidatorAddress      string  `json:"validator_address"`
	Duration              float64 `json:"duration"`
	PreviousCertificateID string  `json:"previous_certificate_id"`
	LocalMean             float64 `json:"local_mean"`
	RequestTime           float64 `json:"request_time"`
	Nonce                 string  `json:"nonce"`
	BlockHash             string  `json:"block_hash"`
	Signature             string  `json:"signature,omitempty"`
}

func (c *WaitCertificate) payload() waitCertificatePayload {
	return waitCertificatePayload{
		ValidatorAddress:      c.ValidatorAddress,
		Duration:              c.Duration,
		PreviousCertificateID: c.PreviousCertificateID,
		LocalMean:             c.LocalMean,
		RequestTime:           c.RequestTime,
		Nonce:                 c.Nonce,
		BlockHash:             c.BlockHash,
	}
}

// Serialize encodes the certificate's signable fields as canonical JSON.
func (c *WaitCertificate) Serialize() (string, error) {
	return canonicalJSON(c.payload())
}

// ParseWaitCertificate decodes a WaitCertificate's signable fields and
// attaches the signature passed in separately. It does not verify the
// signature -- callers that need that must call VerifyWaitCertificate.
func ParseWaitCertificate(serialized, signature string) (*WaitCertificate, error) {
	var payload waitCertificatePayload
	if err := fromCanonicalJSON(serialized, &payload); err != nil {
		return nil, newMalformedError("could not parse wait certificate", err)
	}
	return &WaitCertificate{
		ValidatorAddress:      payload.ValidatorAddress,
		Duration:              payload.Duration,
		PreviousCertificateID: payload.PreviousCertificateID,
		LocalMean:             payload.LocalMean,
		RequestTime:           payload.RequestTime,
		Nonce:                 payload.Nonce,
		BlockHash:             payload.BlockHash,
		Signature:             signature,
	}, nil
}

// signupData is the plaintext structure base64-encoded into
// SignupInfo.SealedSignupData. "Sealing" here is not encryption -- anyone
// who can read the bytes can recover the PoET private key -- only unsealing
// (restoring enclave state from it) is gated behind the enclave API.
type signupData struct {
	PoetPublicKey  string `json:"poet_public_key"`
	PoetPrivateKey string `json:"poet_private_key"`
}
