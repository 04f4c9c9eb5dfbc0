package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[Platform]DistributionChannel
}

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[Platform]DistributionChannel)}
}

func (r *ChannelRegistry) Register(channel DistributionChannel) error {
	if channel == nil {
		return fmt.Errorf("core: channel is nil")
	}
	platform := Platform(strings.TrimSpace(string(channel.Platform())))
	if platform == "" {
		return fmt.Errorf("core: channel platform is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[platform]; exists {
		return fmt.Errorf("core: channel already registered: %s", platform)
	}
	r.channels[platform] = channel
	return nil
}

func (r *ChannelRegistry) Get(platform Platform) (DistributionChannel, bool) {
	platform = Platform(strings.TrimSpace(string(platform)))
	if platform == "" {
		return nil, false
	}
	r.mu.RLock()
	channel, ok := r.channels[platform]
	r.mu.RUnlock()
	return channel, ok
}

func (r *ChannelRegistry) List() []DistributionChannel {
	r.mu.RLock()
	keys := make([]string, 0, len(r.channels))
	for platform := range r.channels {
		keys = append(keys, string(platform))
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	channels := make([]DistributionChannel, 0, len(keys))
	r.mu.RLock()
	for _, key := range keys {
		channels = append(channels, r.channels[Platform(key)])
	}
	r.mu.RUnlock()
	return channels
}

var _ Registry = (*ChannelRegistry)(nil)
