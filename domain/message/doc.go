// Package message defines the request, response and state shapes
// exchanged through the input log, the output log and the gateway.
//
// Amounts are unscaled integers in fundamental units carried as
// decimal.Decimal values with no fractional part.
package message
