package reporting

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	NumberStyle   int
	DateStyle     int
	ProfitStyle   int
	LossStyle     int
	EntryStyle    int
	LabelStyle    int
}

// ReportingConfig selects which outputs a report produces
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string // results/<SYMBOL>_<interval> when empty
	ShowTrades      int    // trades listed on the console, 0 for none
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}

// DefaultReportingConfig enables every output
func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		EnableConsole: true,
		EnableFiles:   true,
		ShowTrades:    20,
		ExcelEnabled:  true,
		CSVEnabled:    true,
		JSONEnabled:   true,
	}
}
