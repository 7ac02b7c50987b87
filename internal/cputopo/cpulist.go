package cputopo

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseList parses the kernel cpu-list syntax used by sysfs files such as
// /sys/devices/system/cpu/online, e.g. "0-3,5,7-8". An empty string yields an
// empty set (all CPUs offline is representable, if never observed in
// practice).
func ParseList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("cpu list %q: empty range", s)
		}
		lo, hi, ok := strings.Cut(part, "-")
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("cpu list %q: %w", s, err)
		}
		end := start
		if ok {
			end, err = strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("cpu list %q: %w", s, err)
			}
		}
		if start < 0 || end < start {
			return nil, fmt.Errorf("cpu list %q: bad range %q", s, part)
		}
		for c := start; c <= end; c++ {
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}
