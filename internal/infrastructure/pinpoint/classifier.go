package pinpoint

import (
	"context"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint/types"
	"github.com/openmca/auth-api/internal/config"
)

// PhoneClassifier reports whether an E.164 number can receive SMS.
// Landlines, VoIP numbers and anything Pinpoint cannot identify as MOBILE
// count as non-mobile.
type PhoneClassifier interface {
	IsMobile(ctx context.Context, e164 string) (bool, error)
}

type classifier struct {
	client *pinpoint.Client
}

func NewClassifier(cfg *config.Config) (PhoneClassifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &classifier{client: pinpoint.NewFromConfig(awsCfg)}, nil
}

func (c *classifier) IsMobile(ctx context.Context, e164 string) (bool, error) {
	out, err := c.client.PhoneNumberValidate(ctx, &pinpoint.PhoneNumberValidateInput{
		NumberValidateRequest: &types.NumberValidateRequest{
			PhoneNumber: &e164,
		},
	})
	if err != nil {
		return false, err
	}
	if out.NumberValidateResponse == nil || out.NumberValidateResponse.PhoneType == nil {
		return false, nil
	}
	return strings.EqualFold(*out.NumberValidateResponse.PhoneType, "MOBILE"), nil
}
