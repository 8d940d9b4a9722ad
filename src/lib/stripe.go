package lib

import (
	"tourbook/src/config"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	sc := stripe.NewClient(config.StripeSecretKey())
	stripeClient = sc

	return sc
}
