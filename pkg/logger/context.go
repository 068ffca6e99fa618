package logger

import "context"

// contextFields maps context keys to the log field they populate in the
// *FCtx logging variants.
var contextFields = map[ContextKey]string{
	RequestIDKey: "request_id",
	ProviderKey:  "provider",
}

func withContext(ctx context.Context) []any {
	fields := make([]any, 0, len(contextFields)*2)
	for key, fieldName := range contextFields {
		if val := ctx.Value(key); val != nil {
			fields = append(fields, fieldName, val)
		}
	}
	return fields
}
