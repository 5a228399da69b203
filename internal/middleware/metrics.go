package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP 请求总数（按方法、路由和状态码）",
		},
		[]string{"method", "path", "status"},
	)

	// 耗时分桶覆盖从纯内存路由到大文件上传下载的区间
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP 请求耗时（秒）",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		},
		[]string{"method", "path", "status"},
	)

	// 体积分桶按图片/语音上传上限（10MB/20MB）拉宽
	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP 请求体大小（字节）",
			Buckets: []float64{256, 1 << 10, 16 << 10, 256 << 10, 1 << 20, 4 << 20, 10 << 20, 20 << 20},
		},
		[]string{"method", "path"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP 响应体大小（字节）",
			Buckets: []float64{256, 1 << 10, 16 << 10, 256 << 10, 1 << 20, 4 << 20, 10 << 20, 20 << 20},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "当前正在处理的 HTTP 请求数",
		},
	)
)

// Metrics Prometheus 监控中间件
// 跳过健康检查、指标端点和 WebSocket 升级：/ws 的请求生命周期等于
// 连接存活时长，会把耗时直方图和在途计数拉到没有意义（连接数
// 单独由 ws_connections_active 统计）
func Metrics() gin.HandlerFunc {
	skip := map[string]struct{}{
		"/health":  {},
		"/metrics": {},
		"/ws":      {},
	}
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if size := c.Request.ContentLength; size > 0 {
			httpRequestSize.WithLabelValues(method, path).Observe(float64(size))
		}

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			httpResponseSize.WithLabelValues(method, path, status).Observe(float64(size))
		}
	}
}
