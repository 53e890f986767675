package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis connection URL is empty")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection URL")
	ErrRedisNotReady                = errors.New("redis did not answer PING before the connect timeout")
	ErrHealthcheckFailed            = errors.New("tier cache healthcheck failed")
)
