package provisioning

import (
	"context"
	"strings"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
)

// WLANPath is the primary wireless configuration instance.
const WLANPath = "InternetGatewayDevice.LANDevice.1.WLANConfiguration.1"

// EditWiFi updates the SSID and/or passphrase of the primary WLAN. The passphrase is
// written to both PreSharedKey and KeyPassphrase since vendors honour one or the other.
func (s *Sequencer) EditWiFi(ctx context.Context, deviceID string, req EditWiFiRequest) (*Result, error) {
	var values []genieacs.ParameterValue
	if req.SSID != nil {
		if ssid := strings.TrimSpace(*req.SSID); ssid != "" {
			values = append(values, genieacs.ParameterValue{Path: WLANPath + ".SSID", Value: ssid, Type: genieacs.TypeString})
		}
	}
	if req.Password != nil && *req.Password != "" {
		values = append(values,
			genieacs.ParameterValue{Path: WLANPath + ".PreSharedKey.1.PreSharedKey", Value: *req.Password, Type: genieacs.TypeString},
			genieacs.ParameterValue{Path: WLANPath + ".PreSharedKey.1.KeyPassphrase", Value: *req.Password, Type: genieacs.TypeString},
		)
	}
	if len(values) == 0 {
		return nil, internalerrors.NewValidationError("No SSID/password provided")
	}

	op := s.begin(ctx, KindEditWiFi, deviceID)
	op.bestEffort("ensure_structure", genieacs.RefreshObject(WLANPath))
	_, _ = op.readTree()

	return op.writeThenRefresh(genieacs.SetParameterValues(values...), genieacs.RefreshObject(WLANPath))
}
