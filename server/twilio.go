package server

import (
	"fmt"

	"github.com/pkg/errors"
	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallPlacer starts an outbound call whose media is streamed back to us.
type CallPlacer interface {
	PlaceCall(to string) (string, error)
}

type TwilioCaller struct {
	client     *twilio.RestClient
	fromNumber string
	twimlURL   string
}

// NewTwilioCaller returns a CallPlacer that points answered calls at
// baseURL + "twiml".
func NewTwilioCaller(accountSid, authToken, fromNumber, baseURL string) (*TwilioCaller, error) {
	if accountSid == "" || authToken == "" || fromNumber == "" {
		return nil, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set")
	}
	if baseURL == "" {
		return nil, errors.New("BASE_URL must be set")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &TwilioCaller{
		client:     client,
		fromNumber: fromNumber,
		twimlURL:   fmt.Sprintf("%stwiml", baseURL),
	}, nil
}

func (t *TwilioCaller) PlaceCall(to string) (string, error) {
	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetUrl(t.twimlURL)
	params.SetMethod("GET")

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return "", errors.Wrap(err, "twilio create call")
	}
	if resp.Sid == nil {
		return "", errors.New("twilio create call: response has no sid")
	}
	return *resp.Sid, nil
}
