package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "20 digit unified number", text: "发票号码:24312000000123456789", want: "24312000000123456789"},
		{name: "anchored 8 digit", text: "号码:12345678开票", want: "12345678"},
		{name: "anchored with No label", text: "No|98765432", want: "98765432"},
		{name: "short digits ignored", text: "号码:1234567", want: ""},
		{name: "unanchored digits ignored", text: "电话12345678", want: ""},
		{name: "empty", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.text))
		})
	}
}

func TestSellerName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "simple company",
			text: "销售方:北京嘀嘀无限科技发展有限公司纳税人识别号",
			want: "北京嘀嘀无限科技发展有限公司",
		},
		{
			name: "blacklisted tax office rejected",
			text: "国家税务总局北京市税务局监制:杭州出租汽车服务部",
			want: "杭州出租汽车服务部",
		},
		{
			name: "longest candidate wins",
			text: "华美达酒店:上海华美达大酒店",
			want: "上海华美达大酒店",
		},
		{
			name: "too short rejected",
			text: "某店",
			want: "",
		},
		{
			name: "bank label rejected",
			text: "开户行:中国工商银行某支行",
			want: "",
		},
		{name: "no candidates", text: "合计¥100.00", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SellerName(tt.text))
		})
	}
}

func TestFromPDFText(t *testing.T) {
	raw := "电子发票(普通发票) 发票号码：24312000000123456789\n" +
		"开票日期：2024年03月05日\n" +
		"销售方：上海汽车旅行社 价税合计(大写)贰佰捌拾叁圆捌角壹分(小写)￥283.81"

	rec := FromPDFText(raw, "/in/scope_0/a.pdf", "scope_0")

	assert.Equal(t, "24312000000123456789", rec.Number)
	assert.Equal(t, "2024-03-05", rec.Date)
	assert.Equal(t, "上海汽车旅行社", rec.Seller)
	assert.InDelta(t, 283.81, rec.Amount, 0.001)
	assert.Equal(t, model.NoteNormal, rec.Note)
	assert.Equal(t, model.SourcePDF, rec.Kind)
	assert.False(t, rec.ImageOnly())
}

func TestFromPDFTextImageOnly(t *testing.T) {
	for _, raw := range []string{"", "   \n ", "扫描件"} {
		rec := FromPDFText(raw, "/in/scan.pdf", "scope_0")

		assert.True(t, rec.ImageOnly())
		assert.Zero(t, rec.Amount)
		assert.Empty(t, rec.Number)
	}
}

func TestFromPDFTextNoNumberFlagged(t *testing.T) {
	rec := FromPDFText("某某出行平台行程报销单据页面合计¥45.30开票", "/in/trip.pdf", "s")

	assert.Empty(t, rec.Number)
	assert.InDelta(t, 45.30, rec.Amount, 0.001)
	assert.Contains(t, rec.Note, "无发票号-")
}
