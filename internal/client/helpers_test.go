package client

import (
	"context"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

func contextWithCorrelationID(id string) context.Context {
	return observability.ContextWithCorrelationID(context.Background(), id)
}
