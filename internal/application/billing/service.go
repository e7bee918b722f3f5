package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"future-self-api/internal/config"
	"future-self-api/internal/domain/entity"
	"future-self-api/internal/domain/repository"
	apperrors "future-self-api/pkg/errors"
	"future-self-api/pkg/logger"
	"future-self-api/pkg/metrics"
)

// Service 计费应用服务
// 结账创建托管会话；订阅状态全部由 Webhook 驱动，结账接口本身不改状态。
type Service struct {
	gateway       Gateway
	parser        EventParser
	cfg           *config.BillingConfig
	baseURL       string
	subscriptions repository.SubscriptionRepository
	tasks         repository.TaskRepository
	stories       repository.StoryRepository
	profiles      repository.ProfileRepository
}

// NewService 创建计费服务
func NewService(
	gateway Gateway,
	parser EventParser,
	cfg *config.Config,
	subscriptions repository.SubscriptionRepository,
	tasks repository.TaskRepository,
	stories repository.StoryRepository,
	profiles repository.ProfileRepository,
) *Service {
	return &Service{
		gateway:       gateway,
		parser:        parser,
		cfg:           &cfg.Billing,
		baseURL:       cfg.App.BaseURL,
		subscriptions: subscriptions,
		tasks:         tasks,
		stories:       stories,
		profiles:      profiles,
	}
}

// Checkout 创建托管结账会话并返回跳转 URL
// 首次结账时懒创建支付平台客户与本地 incomplete 订阅记录
func (s *Service) Checkout(ctx context.Context, userID string, plan entity.PlanType) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("user id is required")
	}
	amount, ok := s.cfg.Plans[string(plan)]
	if !ok {
		metrics.CheckoutSessionsTotal.WithLabelValues(string(plan), "rejected").Inc()
		return "", apperrors.ErrInvalidPlan.WithDetail(fmt.Sprintf("unknown plan %q", plan))
	}

	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "query subscription failed")
	}

	customerID := ""
	if sub != nil {
		customerID = sub.CustomerID
	}
	if customerID == "" {
		email := s.lookupEmail(ctx, userID)
		customerID, err = s.gateway.EnsureCustomer(ctx, userID, email)
		if err != nil {
			metrics.CheckoutSessionsTotal.WithLabelValues(string(plan), "error").Inc()
			return "", apperrors.Wrap(err, apperrors.CodeBillingError, "create customer failed")
		}
		if err := s.subscriptions.Create(ctx, entity.NewSubscription(userID, customerID)); err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "create subscription failed")
		}
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, &CheckoutParams{
		CustomerID: customerID,
		Plan:       plan,
		UnitAmount: amount,
		Currency:   s.cfg.Currency,
		SuccessURL: s.baseURL + s.cfg.SuccessURL,
		CancelURL:  s.baseURL + s.cfg.CancelURL,
		UserID:     userID,
	})
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues(string(plan), "error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeBillingError, "create checkout session failed")
	}

	metrics.CheckoutSessionsTotal.WithLabelValues(string(plan), "created").Inc()
	logger.Info(ctx, "结账会话创建成功", "user_id", userID, "plan", string(plan))
	return url, nil
}

// GetSubscription 获取用户订阅，不存在返回 ErrSubscriptionNotFound
func (s *Service) GetSubscription(ctx context.Context, userID string) (*entity.Subscription, error) {
	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "query subscription failed")
	}
	if sub == nil {
		return nil, apperrors.ErrSubscriptionNotFound
	}
	return sub, nil
}

// HandleWebhook 验证签名并处理支付平台事件
// 签名不合法返回错误（调用方回 400）；未知事件类型直接忽略
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.parser.ParseEvent(payload, signature)
	if err != nil {
		metrics.BillingWebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return apperrors.ErrSignatureRejected.WithError(err)
	}

	var handleErr error
	switch event.Type {
	case EventCheckoutCompleted:
		handleErr = s.handleCheckoutCompleted(ctx, event)
	case EventInvoicePaid:
		handleErr = s.handleInvoicePaid(ctx, event)
	case EventSubscriptionDeleted:
		handleErr = s.handleSubscriptionDeleted(ctx, event)
	default:
		metrics.BillingWebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		logger.Debug(ctx, "忽略未处理的 Webhook 事件", "type", event.Type)
		return nil
	}

	result := "success"
	if handleErr != nil {
		result = "error"
	}
	metrics.BillingWebhookEventsTotal.WithLabelValues(event.Type, result).Inc()
	return handleErr
}

// handleCheckoutCompleted 结账完成：激活订阅并播种任务板
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *WebhookEvent) error {
	if event.CustomerID == "" || event.SubscriptionID == "" {
		return apperrors.ErrInvalidParam.WithDetail("checkout event missing customer or subscription id")
	}

	sub, err := s.subscriptions.GetByCustomerID(ctx, event.CustomerID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "query subscription failed")
	}
	if sub == nil {
		// 本地无客户记录：可能是结账前记录写入失败，只能告警
		logger.Warn(ctx, "结账完成但本地无订阅记录", "customer_id", event.CustomerID)
		return apperrors.ErrSubscriptionNotFound
	}

	if err := s.subscriptions.ActivateByCustomerID(ctx, event.CustomerID, event.SubscriptionID, event.Plan); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "activate subscription failed")
	}

	logger.Info(ctx, "订阅激活成功",
		"user_id", sub.UserID,
		"plan", string(event.Plan),
		"subscription_id", event.SubscriptionID,
	)

	// 播种失败不回滚激活，任务板可后续补建
	s.seedTasks(ctx, sub.UserID)
	return nil
}

// handleInvoicePaid 续费成功：刷新计费周期
func (s *Service) handleInvoicePaid(ctx context.Context, event *WebhookEvent) error {
	if event.SubscriptionID == "" {
		return apperrors.ErrInvalidParam.WithDetail("invoice event missing subscription id")
	}
	if err := s.subscriptions.RefreshPeriod(ctx, event.SubscriptionID, event.PeriodStart, event.PeriodEnd); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "refresh period failed")
	}
	logger.Info(ctx, "订阅周期刷新",
		"subscription_id", event.SubscriptionID,
		"period_end", event.PeriodEnd.Format(time.RFC3339),
	)
	return nil
}

// handleSubscriptionDeleted 订阅取消
func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *WebhookEvent) error {
	if event.SubscriptionID == "" {
		return apperrors.ErrInvalidParam.WithDetail("delete event missing subscription id")
	}
	if err := s.subscriptions.CancelBySubscriptionID(ctx, event.SubscriptionID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "cancel subscription failed")
	}
	logger.Info(ctx, "订阅已取消", "subscription_id", event.SubscriptionID)
	return nil
}

// seedTasks 订阅激活后按故事例行活动播种 7 天任务
// 幂等：已有任务时跳过，避免重复 Webhook 造成重复播种
func (s *Service) seedTasks(ctx context.Context, userID string) {
	story, err := s.stories.GetByUserID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "播种任务失败：查询故事出错", err, "user_id", userID)
		return
	}
	if story == nil || story.Routines == nil || len(story.Routines.DailyRoutines) == 0 {
		logger.Info(ctx, "无例行活动可播种", "user_id", userID)
		return
	}

	from := time.Now()
	to := from.AddDate(0, 0, entity.TaskSeedDays-1)
	count, err := s.tasks.CountByUserAndDateRange(ctx, userID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		logger.Error(ctx, "播种任务失败：查询已有任务出错", err, "user_id", userID)
		return
	}
	if count > 0 {
		logger.Info(ctx, "任务已存在，跳过播种", "user_id", userID, "existing", count)
		return
	}

	var seeds []*entity.Task
	for day := 0; day < entity.TaskSeedDays; day++ {
		date := from.AddDate(0, 0, day).Format(time.DateOnly)
		for pos, title := range story.Routines.DailyRoutines {
			seeds = append(seeds, entity.NewSeedTask(userID, title, date, pos))
		}
	}
	if err := s.tasks.CreateBatch(ctx, seeds); err != nil {
		logger.Error(ctx, "播种任务失败", err, "user_id", userID)
		return
	}

	metrics.TasksSeededTotal.Add(float64(len(seeds)))
	logger.Info(ctx, "任务播种完成",
		"user_id", userID,
		"tasks", len(seeds),
		"routines", len(story.Routines.DailyRoutines),
	)
}

// lookupEmail 读取用户档案邮箱用于支付平台客户创建
func (s *Service) lookupEmail(ctx context.Context, userID string) string {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil || profile == nil {
		return ""
	}
	return profile.Email
}
