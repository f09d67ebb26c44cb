/*
 * Copyright 2017 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package csidx

import (
	"expvar"
	"fmt"

	"golang.org/x/net/trace"
)

type metrics struct {
	NumCounts    *expvar.Int
	NumLocates   *expvar.Int
	NumExtracts  *expvar.Int
	NumCacheHits *expvar.Int
	IndexSize    *expvar.Int

	enabled bool
	elog    trace.EventLog
}

// expvar panics if you try to set an already set variable. So we try get
// first else get new.
func getInt(k string) *expvar.Int {
	if val := expvar.Get(k); val != nil {
		return val.(*expvar.Int)
	}
	return expvar.NewInt(k)
}

func newMetrics(elog trace.EventLog, name string, enabled bool) *metrics {
	m := new(metrics)
	m.NumCounts = getInt(fmt.Sprintf("csidx_%s_counts_total", name))
	m.NumLocates = getInt(fmt.Sprintf("csidx_%s_locates_total", name))
	m.NumExtracts = getInt(fmt.Sprintf("csidx_%s_extracts_total", name))
	m.NumCacheHits = getInt(fmt.Sprintf("csidx_%s_cache_hits_total", name))
	m.IndexSize = getInt(fmt.Sprintf("csidx_%s_size_bytes", name))
	m.enabled = enabled
	m.elog = elog
	return m
}

func (m *metrics) add(metric *expvar.Int, val int64) {
	if m == nil || !m.enabled {
		return
	}
	metric.Add(val)
}

// nilEventLog is used when event logging is disabled, so callers need not
// nil-check before every Printf.
type nilEventLog struct{}

func (nilEventLog) Printf(format string, a ...interface{}) {}
func (nilEventLog) Errorf(format string, a ...interface{}) {}
func (nilEventLog) Finish()                                {}

var _ trace.EventLog = nilEventLog{}
