package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateProgressCache drops a student's cached progression for one topic.
// Called after a recorded attempt completes a level so the unlock is visible
// on the next listing without waiting out the TTL.
func InvalidateProgressCache(ctx context.Context, cm *CacheManager, studentID string, topicID uint) {
	SafeInvalidatePattern(ctx, cm.Progress, fmt.Sprintf("student:%s:topic:%d:*", studentID, topicID))
}
