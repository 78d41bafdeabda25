package listing

import (
	"Homestead/internal/api/config"
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Info 房源服务返回的快照信息
type Info struct {
	ListingID uint64 `json:"listing_id"`
	SellerID  uint64 `json:"seller_id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url"`
	Status    string `json:"status"`
}

// Client 房源服务客户端，用于会话创建时拉取房源快照
type Client interface {
	GetListing(ctx context.Context, listingID uint64) (*Info, error)
}

type clientImpl struct {
	httpClient *resty.Client
}

func NewClient() Client {
	client := resty.New().
		SetBaseURL(config.Cfg.Listing.BaseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &clientImpl{httpClient: client}
}

type listingResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *Info  `json:"data"`
}

func (s *clientImpl) GetListing(ctx context.Context, listingID uint64) (*Info, error) {
	var result listingResp
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatUint(listingID, 10)).
		SetResult(&result).
		Get("/api/listings/{id}")
	if err != nil {
		return nil, errors.Wrap(err, "请求房源服务失败")
	}
	if resp.IsError() || result.Data == nil {
		return nil, errors.Errorf("房源服务返回异常: status=%d code=%d", resp.StatusCode(), result.Code)
	}
	return result.Data, nil
}
