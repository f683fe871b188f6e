// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package environment describes the Azure clouds batchauth can sign in to.
package environment

import (
	"fmt"
	"slices"
	"strings"
)

// AzureEnvironment holds the endpoints and resource identifiers of one cloud.
type AzureEnvironment struct {
	// ID is the stable identifier used in configuration.
	ID string `json:"id" yaml:"id"`
	// Name is shown to users.
	Name string `json:"name" yaml:"name"`
	// AADURL is the base URL of the identity provider, with trailing slash.
	AADURL string `json:"aadUrl" yaml:"aad_url"`
	// ARMURL is the Azure Resource Manager endpoint.
	ARMURL string `json:"armUrl" yaml:"arm_url"`
	// ARMResource is the resource identifier for ARM tokens.
	ARMResource string `json:"armResource" yaml:"arm_resource"`
	// BatchResource is the resource identifier for Batch data plane tokens.
	BatchResource string `json:"batchResource" yaml:"batch_resource"`
	// AADGraphResource is requested during authorization to obtain the code.
	AADGraphResource string `json:"aadGraphResource" yaml:"aad_graph_resource"`
	// StorageEndpoint is the blob endpoint suffix.
	StorageEndpoint string `json:"storageEndpoint" yaml:"storage_endpoint"`
}

// IsNational reports whether the environment is a sovereign cloud, where
// some features are not available.
func (e AzureEnvironment) IsNational() bool {
	return e.ID != Azure.ID
}

func (e AzureEnvironment) String() string {
	return e.Name
}

// AuthorizeURL is the v1 authorization endpoint for tenant.
func (e AzureEnvironment) AuthorizeURL(tenant string) string {
	return e.AADURL + tenant + "/oauth2/authorize"
}

// TokenURL is the v1 token endpoint for tenant.
func (e AzureEnvironment) TokenURL(tenant string) string {
	return e.AADURL + tenant + "/oauth2/token"
}

// LogoutURL is the v1 sign-out endpoint for tenant.
func (e AzureEnvironment) LogoutURL(tenant string) string {
	return e.AADURL + tenant + "/oauth2/logout"
}

var (
	// Azure is the public cloud and the default.
	Azure = AzureEnvironment{
		ID:               "Azure",
		Name:             "Azure Public(Default)",
		AADURL:           "https://login.microsoftonline.com/",
		ARMURL:           "https://management.azure.com/",
		ARMResource:      "https://management.core.windows.net/",
		BatchResource:    "https://batch.core.windows.net/",
		AADGraphResource: "https://graph.windows.net/",
		StorageEndpoint:  "core.windows.net",
	}

	// AzureChina is operated by 21Vianet.
	AzureChina = AzureEnvironment{
		ID:               "AzureChina",
		Name:             "Azure China",
		AADURL:           "https://login.chinacloudapi.cn/",
		ARMURL:           "https://management.chinacloudapi.cn/",
		ARMResource:      "https://management.core.chinacloudapi.cn/",
		BatchResource:    "https://batch.chinacloudapi.cn/",
		AADGraphResource: "https://graph.chinacloudapi.cn/",
		StorageEndpoint:  "core.chinacloudapi.cn",
	}

	// AzureUSGov is the US government cloud.
	AzureUSGov = AzureEnvironment{
		ID:               "AzureUSGov",
		Name:             "Azure US Government",
		AADURL:           "https://login.microsoftonline.us/",
		ARMURL:           "https://management.usgovcloudapi.net/",
		ARMResource:      "https://management.core.usgovcloudapi.net/",
		BatchResource:    "https://batch.core.usgovcloudapi.net/",
		AADGraphResource: "https://graph.windows.net/",
		StorageEndpoint:  "core.usgovcloudapi.net",
	}

	// AzureGermany is the German sovereign cloud.
	AzureGermany = AzureEnvironment{
		ID:               "AzureGermany",
		Name:             "Azure Germany",
		AADURL:           "https://login.microsoftonline.de/",
		ARMURL:           "https://management.microsoftazure.de/",
		ARMResource:      "https://management.core.cloudapi.de/",
		BatchResource:    "https://batch.cloudapi.de/",
		AADGraphResource: "https://graph.cloudapi.de/",
		StorageEndpoint:  "core.cloudapi.de",
	}
)

var known = []AzureEnvironment{Azure, AzureChina, AzureUSGov, AzureGermany}

// All returns the known environments, default first.
func All() []AzureEnvironment {
	return slices.Clone(known)
}

// Get looks an environment up by ID, case-insensitively.
// An empty id resolves to Azure.
func Get(id string) (AzureEnvironment, error) {
	if id == "" {
		return Azure, nil
	}
	for _, env := range known {
		if strings.EqualFold(env.ID, id) {
			return env, nil
		}
	}
	ids := make([]string, 0, len(known))
	for _, env := range known {
		ids = append(ids, env.ID)
	}
	return AzureEnvironment{}, fmt.Errorf("unknown azure environment %q (valid: %s)", id, strings.Join(ids, ", "))
}
