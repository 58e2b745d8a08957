package utils

import (
	"github.com/alwitt/clipsync/common"
	"github.com/go-resty/resty/v2"
)

/*
DefineHTTPClient define a new resty HTTP client from the client config

	@param config common.HTTPClientConfig - HTTP client config
	@returns new resty client
*/
func DefineHTTPClient(config common.HTTPClientConfig) (*resty.Client, error) {
	return resty.
		New().
		SetTimeout(config.RequestTimeout()).
		SetRetryCount(config.Retry.MaxAttempts).
		SetRetryWaitTime(config.Retry.InitWaitTime()).
		SetRetryMaxWaitTime(config.Retry.MaxWaitTime()), nil
}
