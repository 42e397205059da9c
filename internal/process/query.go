package process

import (
	"fmt"

	"bookflow/internal/common"
)

// ListJobs 分页查询计划任务
func (s *ProcessService) ListJobs(status string, processID uint, offset, limit int) ([]ScheduledJob, int64, error) {
	query := s.db.Model(&ScheduledJob{}).Scopes(common.NotDeleted())
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if processID != 0 {
		query = query.Where("process_id = ?", processID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计计划任务失败: %w", err)
	}

	var jobs []ScheduledJob
	err := query.Preload("Process").
		Order("run_time DESC").
		Offset(offset).Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询计划任务失败: %w", err)
	}
	return jobs, total, nil
}

// ListTracks 查询任务的执行轨迹，按时间倒序
func (s *ProcessService) ListTracks(jobID uint) ([]ScheduledActionTrack, error) {
	var tracks []ScheduledActionTrack
	err := s.db.Where("scheduled_job_id = ?", jobID).
		Order("created_at DESC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("查询执行轨迹失败: %w", err)
	}
	return tracks, nil
}

// ListActivityLogs 分页查询活动日志
func (s *ProcessService) ListActivityLogs(actionType string, jobID uint, offset, limit int) ([]ActivityLog, int64, error) {
	query := s.db.Model(&ActivityLog{})
	if actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	if jobID != 0 {
		query = query.Where("scheduled_job_id = ?", jobID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计活动日志失败: %w", err)
	}

	var logs []ActivityLog
	err := query.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询活动日志失败: %w", err)
	}
	return logs, total, nil
}
