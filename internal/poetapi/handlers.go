package poetapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/poet-enclave/simulator/internal/poetenclave"
)

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"antiSybilID":     s.core.AntiSybilID(),
		"poetPublicKey":   s.core.PoetPublicKey(),
		"reportPublicKey": poetenclave.ReportPublicKeyPEM(),
		"nullBlockID":     poetenclave.NullBlockIdentifier,
	})
}

type createSignupInfoRequest struct {
	OriginatorPublicKeyHash string `json:"originator_public_key_hash"`
	Nonce                   string `json:"nonce"`
}

func (s *Service) handleCreateSignupInfo(w http.ResponseWriter, r *http.Request) {
	var req createSignupInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.OriginatorPublicKeyHash == "" {
		respondError(w, http.StatusBadRequest, "originator_public_key_hash is required", "")
		return
	}

	info, err := s.core.CreateSignupInfo(req.OriginatorPublicKeyHash, req.Nonce)
	if err != nil {
		respondEnclaveError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, info)
}

type verifySignupInfoRequest struct {
	SignupInfo              *poetenclave.SignupInfo `json:"signup_info"`
	OriginatorPublicKeyHash string                  `json:"originator_public_key_hash"`
}

func (s *Service) handleVerifySignupInfo(w http.ResponseWriter, r *http.Request) {
	var req verifySignupInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.core.VerifySignupInfo(req.SignupInfo, req.OriginatorPublicKeyHash); err != nil {
		respondEnclaveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type unsealSignupDataRequest struct {
	ValidatorAddress string `json:"validator_address"`
	Sealed           string `json:"sealed_signup_data"`
}

func (s *Service) handleUnsealSignupData(w http.ResponseWriter, r *http.Request) {
	var req unsealSignupDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	poetPublicKey, err := s.core.UnsealSignupData(req.Sealed)
	if err != nil {
		respondEnclaveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"poet_public_key": poetPublicKey})
}

type createWaitTimerRequest struct {
	ValidatorAddress      string  `json:"validator_address"`
	PreviousCertificateID string  `json:"previous_certificate_id"`
	LocalMean             float64 `json:"local_mean"`
	MinimumWaitTime       float64 `json:"minimum_wait_time,omitempty"`
}

func (s *Service) handleCreateWaitTimer(w http.ResponseWriter, r *http.Request) {
	var req createWaitTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.LocalMean <= 0 {
		respondError(w, http.StatusBadRequest, "local_mean must be positive", "")
		return
	}

	var opts []poetenclave.WaitTimerOption
	switch {
	case req.MinimumWaitTime > 0:
		opts = append(opts, poetenclave.WithMinimumWaitTime(req.MinimumWaitTime))
	case s.config.DefaultMinimumWaitTime > 0:
		opts = append(opts, poetenclave.WithMinimumWaitTime(s.config.DefaultMinimumWaitTime))
	}

	timer, err := s.core.CreateWaitTimer(req.ValidatorAddress, req.PreviousCertificateID, req.LocalMean, opts...)
	if err != nil {
		respondEnclaveError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, timer)
}

type createWaitCertificateRequest struct {
	WaitTimer *poetenclave.WaitTimer `json:"wait_timer"`
	BlockHash string                 `json:"block_hash"`
}

func (s *Service) handleCreateWaitCertificate(w http.ResponseWriter, r *http.Request) {
	var req createWaitCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cert, err := s.core.CreateWaitCertificate(req.WaitTimer, req.BlockHash)
	if err != nil {
		respondEnclaveError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cert)
}

type verifyWaitCertificateRequest struct {
	Certificate   *poetenclave.WaitCertificate `json:"certificate"`
	PoetPublicKey string                       `json:"poet_public_key"`
}

func (s *Service) handleVerifyWaitCertificate(w http.ResponseWriter, r *http.Request) {
	var req verifyWaitCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := poetenclave.VerifyWaitCertificate(req.Certificate, req.PoetPublicKey); err != nil {
		respondEnclaveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
