/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

var procStartTime = time.Now()

// SysStats gathers cpu, mem and runtime statistics of this process.
type SysStats struct{}

// Collect returns the current process and Go runtime stats.
func (s *SysStats) Collect() map[string]int64 {
	stats := map[string]int64{
		"process.alive":  1,
		"process.uptime": int64(time.Since(procStartTime).Seconds()),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debugf("Failed to read process stats: %v", err)
	} else {
		if val, err := proc.Percent(0); err == nil {
			stats["process.cpu_permil"] = int64(val * 10)
		}
		if val, err := proc.MemoryInfo(); err == nil {
			stats["process.rss"] = int64(val.RSS)
			stats["process.vms"] = int64(val.VMS)
		}
		if val, err := proc.NumFDs(); err == nil {
			stats["process.num_fds"] = int64(val)
		}
		if val, err := proc.NumThreads(); err == nil {
			stats["process.num_threads"] = int64(val)
		}
	}

	m := &runtime.MemStats{}
	runtime.ReadMemStats(m)
	stats["runtime.cpu.goroutines"] = int64(runtime.NumGoroutine())
	stats["runtime.mem.heap.alloc"] = int64(m.HeapAlloc)
	stats["runtime.mem.heap.objects"] = int64(m.HeapObjects)
	stats["runtime.mem.gc.count"] = int64(m.NumGC)

	return stats
}
