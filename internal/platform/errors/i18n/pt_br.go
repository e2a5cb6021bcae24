package i18n

var ptBRCatalog = &Catalog{
	locale: "pt-BR",
	messages: map[Code]string{
		// Governance errors
		CodeNotController:       "Apenas um controlador do registro pode executar esta operação",
		CodeNotRequester:        "Apenas o solicitante original pode cancelar este pedido",
		CodeAlreadyBootstrapped: "O registro já foi inicializado",
		CodeNotBootstrapped:     "O registro ainda não foi inicializado",
		CodeLastController:      "Não é possível remover o último controlador restante",
		CodeControllerExists:    "O endereço {{.Address}} já é um controlador",

		// Label errors
		CodeLabelInvalid:     "O subnome {{.Label}} não é um rótulo válido",
		CodeLabelUnavailable: "O subnome {{.Label}} não está disponível ({{.Reason}})",
		CodeReservedAssigned: "O subnome reservado {{.Label}} está atribuído e não pode ser removido sem forçar",

		// Request lifecycle errors
		CodeQuotaExceeded: "Cota de {{.Max}} pedidos atingida para o endereço {{.Address}}",
		CodeInvalidState:  "O pedido {{.RequestID}} não está mais pendente",

		// Policy errors
		CodePolicyInvalidQuota: "A cota da política deve ser zero ou maior",

		// Query errors
		CodeNotFound:      "O recurso solicitado não foi encontrado",
		CodeInvalidFilter: "A expressão de filtro fornecida é inválida",

		// Identity errors
		CodeIdentityRequired: "A identidade do chamador é obrigatória",

		// Ledger errors
		CodeLedgerIntegrity: "A verificação de integridade do ledger falhou",
	},
}
