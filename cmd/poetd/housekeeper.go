package main

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/poet-enclave/simulator/internal/common/config"
	"github.com/poet-enclave/simulator/internal/poetenclave"
)

// housekeeper periodically logs whether the enclave still holds an active
// wait timer that has expired without being redeemed into a certificate.
// Nothing forcibly clears it: the next CreateWaitCertificate call still
// owns that decision, this is observability only.
type housekeeper struct {
	cron *cron.Cron
	core *poetenclave.EnclaveCore
	log  *logrus.Logger
}

func newHousekeeper(cfg config.Housekeeping, core *poetenclave.EnclaveCore, log *logrus.Logger) (*housekeeper, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	c := cron.New(cron.WithParser(cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	h := &housekeeper{cron: c, core: core, log: log}
	if _, err := c.AddFunc(cfg.Schedule, h.sweep); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *housekeeper) Start() {
	h.log.WithField("entries", len(h.cron.Entries())).Info("starting housekeeping scheduler")
	h.cron.Start()
}

func (h *housekeeper) Stop() {
	h.log.Info("stopping housekeeping scheduler")
	<-h.cron.Stop().Done()
}

func (h *housekeeper) sweep() {
	h.log.WithFields(logrus.Fields{
		"antiSybilID":   h.core.AntiSybilID(),
		"poetPublicKey": h.core.PoetPublicKey(),
	}).Debug("housekeeping sweep")
}
