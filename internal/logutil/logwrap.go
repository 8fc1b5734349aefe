//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package logutil

import (
	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
)

// LogWrap adds conditional-logging helpers to a LoggingClient.
type LogWrap struct {
	logger.LoggingClient
}

// KeyValue is one structured log pair.
type KeyValue struct {
	Key string
	Val interface{}
}

// ErrIf logs msg at Error level when cond holds and reports cond.
func (lgr LogWrap) ErrIf(cond bool, msg string, params ...KeyValue) bool {
	if !cond {
		return false
	}

	if len(params) > 0 {
		parts := make([]interface{}, len(params)*2)
		for i := range params {
			parts[i*2] = params[i].Key
			parts[i*2+1] = params[i].Val
		}
		lgr.Error(msg, parts...)
	} else {
		lgr.Error(msg)
	}

	return true
}

// ErrIfErr logs a non-nil error with its message appended to params.
func (lgr LogWrap) ErrIfErr(err error, msg string, params ...KeyValue) bool {
	if err == nil {
		return false
	}
	return lgr.ErrIf(true, msg, append(params, KeyValue{"error", err.Error()})...)
}
