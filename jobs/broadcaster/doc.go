// Package broadcaster implements a background job that periodically
// scans the output log past its cursor and publishes the committed
// responses to Kafka.
package broadcaster
