package index

import (
	"context"
	"fmt"
	"strings"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/shoprec/pkg/conv"
)

// FeastFeatureLoader 从 Feast Feature Store 在线存储拉取商品数值特征，
// 刷新到 FeatureIndex（例如离线计算的 quality_score、ctr 等派生特征）。
//
// 商品目录是特征的基础来源；Feast 作为可选的外部特征补充通道，
// 拉取失败只影响增量特征，不影响目录特征构成的基础向量。
type FeastFeatureLoader struct {
	client *feastsdk.GrpcClient

	// Project Feast 项目名
	Project string

	// Features 要拉取的特征引用列表，形如 "product_stats:quality_score"
	Features []string

	// EntityKey 商品实体在 Feast 中的 join key，默认 "product_id"
	EntityKey string
}

// NewFeastFeatureLoader 创建基于官方 SDK gRPC 客户端的特征加载器。
func NewFeastFeatureLoader(host string, port int, project string, features []string) (*FeastFeatureLoader, error) {
	if port == 0 {
		port = 6565 // Feast Feature Server 默认 gRPC 端口
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast: create grpc client: %w", err)
	}
	return &FeastFeatureLoader{
		client:    client,
		Project:   project,
		Features:  features,
		EntityKey: "product_id",
	}, nil
}

// Refresh 拉取一批商品的在线特征并写入索引。
// 特征名取引用冒号后的部分（"product_stats:quality_score" → "quality_score"）。
func (l *FeastFeatureLoader) Refresh(ctx context.Context, idx *FeatureIndex, productIDs []string) error {
	if len(productIDs) == 0 || len(l.Features) == 0 {
		return nil
	}

	entityKey := l.EntityKey
	if entityKey == "" {
		entityKey = "product_id"
	}

	rows := make([]feastsdk.Row, len(productIDs))
	for i, id := range productIDs {
		rows[i] = feastsdk.Row{entityKey: feastsdk.StrVal(id)}
	}

	resp, err := l.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: l.Features,
		Entities: rows,
		Project:  l.Project,
	})
	if err != nil {
		return fmt.Errorf("feast: get online features: %w", err)
	}

	respRows := resp.Rows()
	for i, row := range respRows {
		if i >= len(productIDs) {
			break
		}
		for _, ref := range l.Features {
			// 响应行可能按完整引用或短名键入，两者都查
			val, ok := row[ref]
			if !ok {
				val, ok = row[featureName(ref)]
			}
			if !ok || val == nil {
				continue
			}
			f, ok := numericValue(val)
			if !ok {
				continue
			}
			idx.UpdateNumeric(productIDs[i], featureName(ref), f)
		}
	}
	return nil
}

// featureName 取特征引用中 view 前缀之后的名字。
func featureName(ref string) string {
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// numericValue 从 SDK 返回的值提取数值特征，非数值类型跳过。
// SDK 的 Row 值是 *types.Value protobuf；普通 Go 数值也一并兼容。
func numericValue(val interface{}) (float64, bool) {
	if v, ok := val.(*feasttypes.Value); ok {
		switch x := v.GetVal().(type) {
		case *feasttypes.Value_DoubleVal:
			return x.DoubleVal, true
		case *feasttypes.Value_FloatVal:
			return float64(x.FloatVal), true
		case *feasttypes.Value_Int64Val:
			return float64(x.Int64Val), true
		case *feasttypes.Value_Int32Val:
			return float64(x.Int32Val), true
		}
		return 0, false
	}
	return conv.ToFloat64(val)
}
