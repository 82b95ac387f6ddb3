package objects

import (
	"fmt"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// NewSecurity builds the Security object (0) with instance 0 provisioned
// from cfg. The PSK secret is decoded from hex into the Secret Key.
func NewSecurity(cfg *config.Config) (*lwm2m.Object, error) {
	var secret []byte
	if cfg.Server.PSKSecret != "" {
		var err error
		if secret, err = cfg.PSKSecretBytes(); err != nil {
			return nil, err
		}
	}

	factory := func(id uint16) (*lwm2m.Instance, error) {
		return securityInstance(id, cfg, secret)
	}
	obj := lwm2m.NewObject(SecurityObjectID,
		lwm2m.WithObjectName("Security"),
		lwm2m.WithFactory(factory),
	)
	in, err := factory(0)
	if err != nil {
		return nil, err
	}
	if err := obj.Register(in); err != nil {
		return nil, fmt.Errorf("registering security instance: %w", err)
	}
	return obj, nil
}

func securityInstance(id uint16, cfg *config.Config, secret []byte) (*lwm2m.Instance, error) {
	return lwm2m.NewInstance(id,
		lwm2m.MustReadWritable(SecurityURI, lwm2m.KindString, cfg.ServerURI(), lwm2m.WithName("LWM2M Server URI")),
		lwm2m.MustReadWritable(SecurityBootstrap, lwm2m.KindBoolean, cfg.Server.Bootstrap, lwm2m.WithName("Bootstrap Server")),
		lwm2m.MustReadWritable(SecurityMode, lwm2m.KindInteger, cfg.Server.SecurityMode, lwm2m.WithName("Security Mode")),
		lwm2m.MustReadWritable(SecurityPublicKey, lwm2m.KindOpaque, []byte(cfg.Server.PSKIdentity), lwm2m.WithName("Public Key or Identity")),
		lwm2m.MustReadWritable(SecurityServerPublicKey, lwm2m.KindOpaque, []byte{}, lwm2m.WithName("Server Public Key")),
		lwm2m.MustReadWritable(SecuritySecretKey, lwm2m.KindOpaque, secret, lwm2m.WithName("Secret Key")),
		lwm2m.MustReadWritable(SecuritySMSMode, lwm2m.KindInteger, 0, lwm2m.WithName("SMS Security Mode")),
		lwm2m.MustReadWritable(SecuritySMSKeyParams, lwm2m.KindOpaque, []byte{}, lwm2m.WithName("SMS Binding Key Parameters")),
		lwm2m.MustReadWritable(SecuritySMSSecretKey, lwm2m.KindOpaque, []byte{}, lwm2m.WithName("SMS Binding Secret Key")),
		lwm2m.MustReadWritable(SecuritySMSServerNumber, lwm2m.KindInteger, 0, lwm2m.WithName("LWM2M Server SMS Number")),
		lwm2m.MustReadWritable(SecurityShortServerID, lwm2m.KindInteger, cfg.Client.ShortServerID, lwm2m.WithName("Short Server ID")),
		lwm2m.MustReadWritable(SecurityHoldOff, lwm2m.KindInteger, cfg.Server.HoldOff, lwm2m.WithName("Client Hold Off Time")),
		lwm2m.MustReadWritable(SecurityBootstrapTimeout, lwm2m.KindInteger, 0, lwm2m.WithName("Bootstrap Server Account Timeout")),
	)
}
