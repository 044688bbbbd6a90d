package app

import "context"

// LifecycleService 没有主循环、只需在退出时释放资源的服务
type LifecycleService struct {
	name string
	stop func(ctx context.Context) error
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(name string, stop func(ctx context.Context) error) *LifecycleService {
	return &LifecycleService{name: name, stop: stop}
}

// Name 服务名称
func (s *LifecycleService) Name() string {
	return s.name
}

// Start 阻塞到运行器退出
func (s *LifecycleService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop 释放资源
func (s *LifecycleService) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	return s.stop(ctx)
}
