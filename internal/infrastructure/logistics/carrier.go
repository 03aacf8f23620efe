package logistics

import (
	"sort"
	"strings"
)

// DefaultCarrier is assumed when an order carries no carrier name
const DefaultCarrier = "申通快递"

// carrierCodes maps carrier display names to KD100 company codes
var carrierCodes = map[string]string{
	"顺丰速运":      "shunfeng",
	"顺丰快递":      "shunfeng",
	"顺丰":        "shunfeng",
	"顺丰快运":      "shunfengkuaiyun",
	"顺丰冷链":      "shunfenglengyun",
	"中通快递":      "zhongtong",
	"中通":        "zhongtong",
	"中通快运":      "zhongtongkuaiyun",
	"中通国际":      "zhongtongguoji",
	"中通冷链":      "ztocc",
	"圆通速递":      "yuantong",
	"圆通快递":      "yuantong",
	"圆通":        "yuantong",
	"圆通国际":      "yuantongguoji",
	"韵达快递":      "yunda",
	"韵达":        "yunda",
	"韵达快运":      "yundakuaiyun",
	"申通快递":      "shentong",
	"申通":        "shentong",
	"申通国际":      "stosolution",
	"极兔速递":      "jtexpress",
	"极兔快递":      "jtexpress",
	"极兔":        "jtexpress",
	"极兔国际":      "jet",
	"京东物流":      "jd",
	"京东快递":      "jd",
	"京东":        "jd",
	"京东快运":      "jingdongkuaiyun",
	"邮政快递包裹":    "youzhengguonei",
	"邮政快递":      "youzhengguonei",
	"邮政":        "youzhengguonei",
	"EMS":       "ems",
	"邮政电商标快":    "youzhengdsbk",
	"邮政标准快递":    "youzhengbk",
	"EMS物流":     "emswuliu",
	"EMS包裹":     "emsbg",
	"EMS-国际件":   "emsguoji",
	"德邦快递":      "debangkuaidi",
	"德邦":        "debangkuaidi",
	"德邦物流":      "debangwuliu",
	"百世快递":      "huitongkuaidi",
	"百世":        "huitongkuaidi",
	"百世快运":      "baishiwuliu",
	"百世国际":      "baishiguoji",
	"菜鸟速递":      "danniao",
	"菜鸟":        "danniao",
	"菜鸟大件":      "cainiaodajian",
	"菜鸟国际":      "cainiaoglobal",
	"天天快递":      "tiantian",
	"天天":        "tiantian",
	"跨越速运":      "kuayue",
	"安能快运":      "annengwuliu",
	"安能快递":      "ane66",
	"壹米滴答":      "yimidida",
	"日日顺物流":     "rrs",
	"宅急送":       "zhaijisong",
	"苏宁物流":      "suning",
	"货拉拉物流":     "huolalawuliu",
	"UPS":       "ups",
	"DHL":       "dhl",
	"DHL-中国件":   "dhl",
	"DHL-全球件":   "dhlen",
	"FedEx":     "fedex",
	"FedEx-国际件": "fedex",
	"联邦快递":      "lianbangkuaidi",
	"TNT":       "tnt",
	"USPS":      "usps",
}

// carrierNamesByLength lists map keys longest first so fuzzy matching is deterministic
var carrierNamesByLength = sortedCarrierNames()

func sortedCarrierNames() []string {
	names := make([]string, 0, len(carrierCodes))
	for name := range carrierCodes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// CarrierCode resolves a carrier display name to its KD100 code.
// Exact names win, then names contained in (or containing) the input,
// else the lowercased input without the 快递/速递 suffix.
func CarrierCode(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCarrier
	}
	if code, ok := carrierCodes[name]; ok {
		return code
	}
	for _, candidate := range carrierNamesByLength {
		if strings.Contains(name, candidate) || strings.Contains(candidate, name) {
			return carrierCodes[candidate]
		}
	}
	code := strings.ToLower(name)
	code = strings.ReplaceAll(code, "快递", "")
	code = strings.ReplaceAll(code, "速递", "")
	return code
}
