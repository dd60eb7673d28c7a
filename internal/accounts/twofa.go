package accounts

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPSetup is what an authenticator app needs to enroll.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
	QRCode string `json:"qr_code"` // base64 PNG
}

// SetupTOTP generates and stores a fresh TOTP secret. It fails once 2FA is
// enabled; staff reset it through the user admin.
func (s *Service) SetupTOTP(ctx context.Context, userID uuid.UUID) (*TOTPSetup, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TOTPEnabled {
		return nil, ErrTOTPEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: u.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}
	if err := s.users.SetTOTPSecret(ctx, u.ID, key.Secret()); err != nil {
		return nil, storeErr("save totp secret", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	return &TOTPSetup{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// VerifyTOTP checks code against the stored secret. The first valid code
// completes enrollment.
func (s *Service) VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPSecret == nil {
		return ErrTOTPNotSetUp
	}
	if !totp.Validate(code, *u.TOTPSecret) {
		return ErrInvalidCode
	}
	if !u.TOTPEnabled {
		if err := s.users.EnableTOTP(ctx, u.ID); err != nil {
			return storeErr("enable totp", err)
		}
	}
	return nil
}
