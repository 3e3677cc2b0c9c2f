package common

const StatusNotImplemented = "not_implemented_yet"

// NotImplemented 诊断记录：未知类型、无解码实现的类型或未知程序都输出这个结构
type NotImplemented struct {
	AccountType   string `json:"account_type" yaml:"account_type"`
	Program       string `json:"program" yaml:"program"`
	DataLength    int    `json:"data_length" yaml:"data_length"`
	Discriminator string `json:"discriminator" yaml:"discriminator"`
	ParsingStatus string `json:"parsing_status" yaml:"parsing_status"`
}
