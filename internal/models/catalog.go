package models

// StockBasic is one listed-company row of the static catalogue.
type StockBasic struct {
	TSCode   string `badgerhold:"key" json:"ts_code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Area     string `json:"area,omitempty"`
	Industry string `json:"industry,omitempty"`
	Market   string `json:"market,omitempty"`
	ListDate string `json:"list_date,omitempty"`
}

// CompanyProfile is the company registration record behind one listing.
type CompanyProfile struct {
	TSCode       string `badgerhold:"key" json:"ts_code"`
	ComName      string `json:"com_name,omitempty"`
	Chairman     string `json:"chairman,omitempty"`
	Manager      string `json:"manager,omitempty"`
	RegCapital   string `json:"reg_capital,omitempty"`
	SetupDate    string `json:"setup_date,omitempty"`
	Province     string `json:"province,omitempty"`
	City         string `json:"city,omitempty"`
	Website      string `json:"website,omitempty"`
	Employees    int    `json:"employees,omitempty"`
	MainBusiness string `json:"main_business,omitempty"`
	Introduction string `json:"introduction,omitempty"`
}

// TradeDay is one exchange calendar entry (dates as YYYYMMDD).
type TradeDay struct {
	CalDate      string `badgerhold:"key" json:"cal_date"`
	Exchange     string `json:"exchange"`
	IsOpen       bool   `json:"is_open"`
	PretradeDate string `json:"pretrade_date,omitempty"`
}
